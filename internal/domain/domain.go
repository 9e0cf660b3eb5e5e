package domain

import "time"

// ReadingStatus is a MangaDex reading status for a followed manga.
type ReadingStatus string

const (
	ReadingStatusReading    ReadingStatus = "reading"
	ReadingStatusOnHold     ReadingStatus = "on_hold"
	ReadingStatusPlanToRead ReadingStatus = "plan_to_read"
	ReadingStatusDropped    ReadingStatus = "dropped"
	ReadingStatusReReading  ReadingStatus = "re_reading"
	ReadingStatusCompleted  ReadingStatus = "completed"
)

// MangaEntry is a single followed manga as fetched from MangaDex.
// Immutable for the duration of a run unless the cache is force-refreshed.
type MangaEntry struct {
	SourceID string        `json:"source_id"`
	Title    string        `json:"title"`
	Status   ReadingStatus `json:"status"`
}

// Outcome classifies the result of syncing one entry.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeError     Outcome = "error"
)

// SyncRecord is the persisted result for one MangaEntry. A matched record is
// terminal; unmatched and error records are retried on the next run.
type SyncRecord struct {
	SourceID  string        `json:"source_id"`
	TargetID  int           `json:"target_id,omitempty"`
	Status    ReadingStatus `json:"status"`
	Outcome   Outcome       `json:"outcome"`
	Timestamp time.Time     `json:"timestamp"`
}

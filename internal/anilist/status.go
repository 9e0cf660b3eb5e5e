package anilist

import "github.com/Another0Noob/mangadex-export/internal/domain"

// MediaListStatus is the status of a media in the user's AniList list.
type MediaListStatus string

const (
	MediaListStatusCurrent   MediaListStatus = "CURRENT"
	MediaListStatusPlanning  MediaListStatus = "PLANNING"
	MediaListStatusCompleted MediaListStatus = "COMPLETED"
	MediaListStatusDropped   MediaListStatus = "DROPPED"
	MediaListStatusPaused    MediaListStatus = "PAUSED"
	MediaListStatusRepeating MediaListStatus = "REPEATING"
)

var statusMap = map[domain.ReadingStatus]MediaListStatus{
	domain.ReadingStatusReading:    MediaListStatusCurrent,
	domain.ReadingStatusOnHold:     MediaListStatusPaused,
	domain.ReadingStatusPlanToRead: MediaListStatusPlanning,
	domain.ReadingStatusDropped:    MediaListStatusDropped,
	domain.ReadingStatusReReading:  MediaListStatusRepeating,
	domain.ReadingStatusCompleted:  MediaListStatusCompleted,
}

// StatusFor maps a MangaDex reading status onto the AniList list status.
// Unknown statuses fall back to CURRENT.
func StatusFor(s domain.ReadingStatus) MediaListStatus {
	if mls, ok := statusMap[s]; ok {
		return mls
	}
	return MediaListStatusCurrent
}

// Package sync drives the one-pass export: fetch or reuse the cached follow
// list, match each entry against AniList, upsert the list entry and persist
// progress after every item so an interrupted run can resume.
package sync

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Another0Noob/mangadex-export/internal/domain"
	"github.com/Another0Noob/mangadex-export/internal/store"
)

// Source produces the follow list (the MangaDex adapter).
type Source interface {
	FetchFollows(ctx context.Context) ([]domain.MangaEntry, error)
}

// Target receives list entries (the AniList adapter).
type Target interface {
	Login(ctx context.Context) error
	SaveFollow(ctx context.Context, mediaID int, status domain.ReadingStatus) error
}

// Matcher maps a title onto a target media id.
type Matcher interface {
	Match(ctx context.Context, title string) (mediaID int, ok bool, err error)
}

// Store persists the cache, progress and unmatched report.
type Store interface {
	LoadCache() (map[string]domain.MangaEntry, error)
	SaveCache(map[string]domain.MangaEntry) error
	LoadProgress() (map[string]domain.SyncRecord, error)
	SaveProgress(map[string]domain.SyncRecord) error
	SaveReport(store.Report) error
}

type Runner struct {
	log     zerolog.Logger
	source  Source
	target  Target
	matcher Matcher
	store   Store

	forceRefresh bool

	now func() time.Time
}

func NewRunner(source Source, target Target, matcher Matcher, st Store, forceRefresh bool, log zerolog.Logger) *Runner {
	return &Runner{
		log:          log.With().Str("module", "sync").Logger(),
		source:       source,
		target:       target,
		matcher:      matcher,
		store:        st,
		forceRefresh: forceRefresh,
		now:          time.Now,
	}
}

// Run executes one full pass. Entries already recorded as matched or
// unmatched are never re-attempted; only errored and unseen entries are.
// A single entry failing never aborts the run, but a target login failure
// at startup does.
func (r *Runner) Run(ctx context.Context) error {
	entries, err := r.loadEntries(ctx)
	if err != nil {
		return err
	}

	progress, err := r.store.LoadProgress()
	if err != nil {
		return errors.Wrap(err, "load progress")
	}

	if err := r.target.Login(ctx); err != nil {
		return errors.Wrap(err, "anilist login")
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var processed, matched, unmatched, failed, skipped int
	for _, id := range ids {
		if rec, ok := progress[id]; ok && terminal(rec.Outcome) {
			skipped++
			continue
		}

		rec := r.process(ctx, entries[id])
		progress[id] = rec
		if err := r.store.SaveProgress(progress); err != nil {
			return errors.Wrap(err, "save progress")
		}

		processed++
		switch rec.Outcome {
		case domain.OutcomeMatched:
			matched++
		case domain.OutcomeUnmatched:
			unmatched++
		case domain.OutcomeError:
			failed++
		}
	}

	if err := r.writeReport(entries, progress); err != nil {
		return err
	}

	r.log.Info().
		Int("total", len(entries)).
		Int("processed", processed).
		Int("skipped", skipped).
		Int("matched", matched).
		Int("unmatched", unmatched).
		Int("errors", failed).
		Msg("sync pass complete")
	return nil
}

// loadEntries returns the cached follow list, fetching and re-caching it
// when the cache is absent or a refresh was forced.
func (r *Runner) loadEntries(ctx context.Context) (map[string]domain.MangaEntry, error) {
	if !r.forceRefresh {
		cached, err := r.store.LoadCache()
		if err != nil {
			return nil, errors.Wrap(err, "load cache")
		}
		if len(cached) > 0 {
			r.log.Info().Int("count", len(cached)).Msg("using cached follow list")
			return cached, nil
		}
	}

	follows, err := r.source.FetchFollows(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch follows")
	}

	entries := make(map[string]domain.MangaEntry, len(follows))
	for _, e := range follows {
		entries[e.SourceID] = e
	}
	if err := r.store.SaveCache(entries); err != nil {
		return nil, errors.Wrap(err, "save cache")
	}
	r.log.Info().Int("count", len(entries)).Msg("refreshed follow list from MangaDex")
	return entries, nil
}

// terminal reports whether an outcome is final. Errored entries get another
// attempt on the next pass; matched and unmatched ones do not.
func terminal(o domain.Outcome) bool {
	return o == domain.OutcomeMatched || o == domain.OutcomeUnmatched
}

func (r *Runner) process(ctx context.Context, e domain.MangaEntry) domain.SyncRecord {
	rec := domain.SyncRecord{
		SourceID:  e.SourceID,
		Status:    e.Status,
		Timestamp: r.now(),
	}

	mediaID, ok, err := r.matcher.Match(ctx, e.Title)
	if err != nil {
		r.log.Error().Err(err).Str("title", e.Title).Msg("match failed")
		rec.Outcome = domain.OutcomeError
		return rec
	}
	if !ok {
		r.log.Info().Str("title", e.Title).Msg("no AniList match, recorded for review")
		rec.Outcome = domain.OutcomeUnmatched
		return rec
	}

	if err := r.target.SaveFollow(ctx, mediaID, e.Status); err != nil {
		r.log.Error().Err(err).Str("title", e.Title).Int("media_id", mediaID).Msg("save follow failed")
		rec.Outcome = domain.OutcomeError
		return rec
	}

	r.log.Info().Str("title", e.Title).Int("media_id", mediaID).Msg("synced to AniList")
	rec.TargetID = mediaID
	rec.Outcome = domain.OutcomeMatched
	return rec
}

func (r *Runner) writeReport(entries map[string]domain.MangaEntry, progress map[string]domain.SyncRecord) error {
	report := store.Report{Manga: map[string]domain.MangaEntry{}}
	for id, rec := range progress {
		if rec.Outcome != domain.OutcomeUnmatched {
			continue
		}
		if e, ok := entries[id]; ok {
			report.Manga[id] = e
		}
	}
	report.Total = len(report.Manga)
	return errors.Wrap(r.store.SaveReport(report), "save unmatched report")
}

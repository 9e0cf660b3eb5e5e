package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Another0Noob/mangadex-export/internal/domain"
)

func newTestStore() (*Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	return New(fs, "data", zerolog.Nop()), fs
}

func TestLoadCacheMissingFile(t *testing.T) {
	s, _ := newTestStore()
	cache, err := s.LoadCache()
	require.NoError(t, err)
	assert.Empty(t, cache)
}

func TestCacheRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	in := map[string]domain.MangaEntry{
		"id-1": {SourceID: "id-1", Title: "One Piece", Status: domain.ReadingStatusReading},
		"id-2": {SourceID: "id-2", Title: "Berserk", Status: domain.ReadingStatusOnHold},
	}
	require.NoError(t, s.SaveCache(in))

	out, err := s.LoadCache()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestProgressRoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := map[string]domain.SyncRecord{
		"id-1": {SourceID: "id-1", TargetID: 13, Status: domain.ReadingStatusReading, Outcome: domain.OutcomeMatched, Timestamp: ts},
		"id-2": {SourceID: "id-2", Status: domain.ReadingStatusCompleted, Outcome: domain.OutcomeUnmatched, Timestamp: ts},
	}
	require.NoError(t, s.SaveProgress(in))

	out, err := s.LoadProgress()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, fs := newTestStore()
	require.NoError(t, s.SaveProgress(map[string]domain.SyncRecord{
		"id-1": {SourceID: "id-1", Outcome: domain.OutcomeMatched},
	}))

	infos, err := afero.ReadDir(fs, "data")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "sync_progress.json", infos[0].Name())
}

func TestSaveReplacesExistingDocumentAtomically(t *testing.T) {
	s, fs := newTestStore()
	require.NoError(t, s.SaveProgress(map[string]domain.SyncRecord{
		"id-1": {SourceID: "id-1", Outcome: domain.OutcomeMatched},
	}))
	require.NoError(t, s.SaveProgress(map[string]domain.SyncRecord{
		"id-1": {SourceID: "id-1", Outcome: domain.OutcomeMatched},
		"id-2": {SourceID: "id-2", Outcome: domain.OutcomeError},
	}))

	// Whatever is on disk must always parse as valid JSON.
	b, err := afero.ReadFile(fs, filepath.Join("data", "sync_progress.json"))
	require.NoError(t, err)
	var out map[string]domain.SyncRecord
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Len(t, out, 2)
}

func TestSaveReport(t *testing.T) {
	s, fs := newTestStore()
	require.NoError(t, s.SaveReport(Report{
		Total: 1,
		Manga: map[string]domain.MangaEntry{
			"id-9": {SourceID: "id-9", Title: "Obscure", Status: domain.ReadingStatusReading},
		},
	}))

	b, err := afero.ReadFile(fs, filepath.Join("data", "non_matched_manga.json"))
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, 1, r.Total)
	assert.Contains(t, r.Manga, "id-9")
}

func TestLoadCorruptFile(t *testing.T) {
	s, fs := newTestStore()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("data", "sync_progress.json"), []byte("{not json"), 0o644))

	_, err := s.LoadProgress()
	require.Error(t, err)
}

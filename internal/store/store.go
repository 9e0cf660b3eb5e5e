// Package store persists the follow cache and sync progress as JSON
// documents. Writes go through a temp file and rename so an interrupted run
// never corrupts previously recorded state.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Another0Noob/mangadex-export/internal/domain"
)

const (
	cacheFile    = "manga_statuses.json"
	progressFile = "sync_progress.json"
	reportFile   = "non_matched_manga.json"
)

// Report is the end-of-run summary of entries that found no AniList match,
// for manual review.
type Report struct {
	Total int                          `json:"total"`
	Manga map[string]domain.MangaEntry `json:"manga"`
}

type Store struct {
	fs  afero.Fs
	dir string
	log zerolog.Logger
}

// New creates a store rooted at dir on the given filesystem.
func New(fs afero.Fs, dir string, log zerolog.Logger) *Store {
	return &Store{
		fs:  fs,
		dir: dir,
		log: log.With().Str("module", "store").Logger(),
	}
}

// LoadCache returns the cached follow list keyed by source id. A missing file
// yields an empty map, not an error.
func (s *Store) LoadCache() (map[string]domain.MangaEntry, error) {
	out := map[string]domain.MangaEntry{}
	if err := s.loadJSON(cacheFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCache replaces the follow cache wholesale.
func (s *Store) SaveCache(entries map[string]domain.MangaEntry) error {
	return s.saveJSON(cacheFile, entries)
}

// LoadProgress returns the persisted sync records keyed by source id. A
// missing file yields an empty map, not an error.
func (s *Store) LoadProgress() (map[string]domain.SyncRecord, error) {
	out := map[string]domain.SyncRecord{}
	if err := s.loadJSON(progressFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProgress writes the full progress mapping.
func (s *Store) SaveProgress(records map[string]domain.SyncRecord) error {
	return s.saveJSON(progressFile, records)
}

// SaveReport writes the unmatched-manga report.
func (s *Store) SaveReport(r Report) error {
	return s.saveJSON(reportFile, r)
}

func (s *Store) loadJSON(name string, out any) error {
	path := filepath.Join(s.dir, name)
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "unmarshal %s", path)
	}
	return nil
}

// saveJSON writes to a temp file in the target directory, then renames it
// over the destination. Rename within one directory is atomic on the
// platforms this tool targets.
func (s *Store) saveJSON(name string, v any) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", s.dir)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "close %s", tmpName)
	}

	path := filepath.Join(s.dir, name)
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "rename %s to %s", tmpName, path)
	}

	s.log.Debug().Str("path", path).Int("bytes", len(b)).Msg("saved document")
	return nil
}

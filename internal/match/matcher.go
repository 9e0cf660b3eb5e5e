// Package match maps a MangaDex title onto an AniList media id by comparing
// it against the titles of the remote search results.
package match

import (
	"context"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"github.com/Another0Noob/mangadex-export/internal/anilist"
)

// Searcher is the AniList search operation the matcher drives.
type Searcher interface {
	SearchManga(ctx context.Context, title string) ([]anilist.Media, error)
}

type Matcher struct {
	search Searcher
	log    zerolog.Logger
}

func New(search Searcher, log zerolog.Logger) *Matcher {
	return &Matcher{
		search: search,
		log:    log.With().Str("module", "match").Logger(),
	}
}

// Match returns the media id of the best candidate for title, or ok=false
// when no candidate qualifies. Candidates are tried in the order the service
// ranks them: case-insensitive exact first, then normalized comparison, then
// a bounded-edit-distance fuzzy pass. No match is not an error.
func (m *Matcher) Match(ctx context.Context, title string) (int, bool, error) {
	results, err := m.search.SearchManga(ctx, title)
	if err != nil {
		return 0, false, err
	}
	if len(results) == 0 {
		return 0, false, nil
	}

	for _, media := range results {
		if equalsFold(title, media.Title) {
			m.log.Debug().Str("title", title).Int("media_id", media.ID).Str("tier", "exact").Msg("matched")
			return media.ID, true, nil
		}
	}

	want := Normalize(title)
	if want == "" {
		return 0, false, nil
	}
	for _, media := range results {
		if Normalize(media.Title.Romaji) == want || Normalize(media.Title.English) == want {
			m.log.Debug().Str("title", title).Int("media_id", media.ID).Str("tier", "normalized").Msg("matched")
			return media.ID, true, nil
		}
	}

	if id, ok := m.fuzzyMatch(want, results); ok {
		m.log.Debug().Str("title", title).Int("media_id", id).Str("tier", "fuzzy").Msg("matched")
		return id, true, nil
	}

	m.log.Debug().Str("title", title).Int("candidates", len(results)).Msg("no match")
	return 0, false, nil
}

func equalsFold(title string, t anilist.MediaTitle) bool {
	if t.Romaji != "" && strings.EqualFold(title, t.Romaji) {
		return true
	}
	return t.English != "" && strings.EqualFold(title, t.English)
}

// fuzzyMatch accepts the first candidate whose normalized title is within a
// length-scaled edit distance of the wanted title.
func (m *Matcher) fuzzyMatch(want string, results []anilist.Media) (int, bool) {
	thr := distanceThreshold(len(want))
	for _, media := range results {
		for _, cand := range []string{media.Title.Romaji, media.Title.English} {
			n := Normalize(cand)
			if n == "" {
				continue
			}
			if fuzzy.LevenshteinDistance(want, n) <= thr {
				return media.ID, true
			}
		}
	}
	return 0, false
}

// distanceThreshold is ~20% of the pattern length, clamped to [1,3].
func distanceThreshold(n int) int {
	th := n / 5
	if th < 1 {
		return 1
	}
	if th > 3 {
		return 3
	}
	return th
}

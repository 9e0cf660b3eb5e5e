package mangadex

import "strings"

// Manga is the subset of the MangaDex manga object this tool needs.
type Manga struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes MangaAttributes `json:"attributes"`
}

type MangaAttributes struct {
	Title     map[string]string   `json:"title"`
	AltTitles []map[string]string `json:"altTitles"`
}

// APIError represents an error object in the API response envelope.
type APIError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type collectionEnvelope struct {
	Result string     `json:"result"`
	Data   []Manga    `json:"data"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Total  int        `json:"total"`
	Errors []APIError `json:"errors,omitempty"`
}

func romanized(lang string) bool {
	// Romanized languages end with -ro (ja-ro, ko-ro, zh-ro).
	return strings.HasSuffix(lang, "-ro")
}

// preferredTitle picks a human-friendly title for matching and display:
// English primary, romanized primary, English alt, romanized alt, anything.
func preferredTitle(m Manga) string {
	attrs := m.Attributes

	if t, ok := attrs.Title["en"]; ok && t != "" {
		return t
	}
	for lang, t := range attrs.Title {
		if romanized(lang) && t != "" {
			return t
		}
	}
	for _, mp := range attrs.AltTitles {
		if t, ok := mp["en"]; ok && t != "" {
			return t
		}
	}
	for _, mp := range attrs.AltTitles {
		for lang, t := range mp {
			if romanized(lang) && t != "" {
				return t
			}
		}
	}
	for _, t := range attrs.Title {
		if t != "" {
			return t
		}
	}
	for _, mp := range attrs.AltTitles {
		for _, t := range mp {
			if t != "" {
				return t
			}
		}
	}
	return ""
}

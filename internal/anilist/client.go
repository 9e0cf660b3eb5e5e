// Package anilist is the AniList adapter: implicit-grant OAuth login through
// a local callback listener, manga search and list-entry upserts over GraphQL.
package anilist

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Another0Noob/mangadex-export/internal/domain"
	"github.com/Another0Noob/mangadex-export/internal/httpapi"
)

const (
	apiURL       = "https://graphql.anilist.co"
	authorizeURL = "https://anilist.co/api/v2/oauth/authorize"

	defaultRedirectURI = "http://localhost:8080"

	// AniList allows 90 requests per minute (less when the API is degraded);
	// the header-driven budget in httpapi handles the degraded case.
	rateLimitRequests = 90
	rateLimitDuration = time.Minute
)

// Credentials identify the registered AniList OAuth client.
type Credentials struct {
	ClientID    string
	RedirectURI string
}

// Client is the AniList service adapter. It owns its HTTP client and token.
type Client struct {
	http  *httpapi.Client
	creds Credentials
	log   zerolog.Logger

	// openURL launches the user's browser; swapped out in tests.
	openURL func(string) error
}

// NewClient creates an AniList adapter for the given OAuth client.
func NewClient(creds Credentials, log zerolog.Logger) *Client {
	if creds.RedirectURI == "" {
		creds.RedirectURI = defaultRedirectURI
	}
	return &Client{
		http: httpapi.NewClient(httpapi.Settings{
			BaseURL:      apiURL,
			Requests:     rateLimitRequests,
			Per:          rateLimitDuration,
			RequireToken: true,
		}, log),
		creds:   creds,
		log:     log.With().Str("module", "anilist").Logger(),
		openURL: openBrowser,
	}
}

var searchMangaQuery = `
query ($search: String) {
	Page {
		media (search: $search, type: MANGA) {
			id
			title {
				romaji
				english
			}
		}
	}
}
`

var saveMediaListEntryMutation = `
mutation ($mediaId: Int, $status: MediaListStatus) {
	SaveMediaListEntry (mediaId: $mediaId, status: $status) {
		id
		status
	}
}
`

// Media is an AniList catalog entry.
type Media struct {
	ID    int        `json:"id"`
	Title MediaTitle `json:"title"`
}

type MediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
}

// ListEntry is the user's list entry for one media.
type ListEntry struct {
	ID     int             `json:"id"`
	Status MediaListStatus `json:"status"`
}

type gqlError struct {
	Message string `json:"message"`
}

// SearchManga returns candidate media for the given title, in the order the
// service ranks them. Requires a prior Login.
func (c *Client) SearchManga(ctx context.Context, title string) ([]Media, error) {
	var resp struct {
		Data struct {
			Page struct {
				Media []Media `json:"media"`
			} `json:"Page"`
		} `json:"data"`
		Errors []gqlError `json:"errors,omitempty"`
	}
	if err := c.query(ctx, searchMangaQuery, map[string]any{"search": title}, &resp); err != nil {
		return nil, errors.Wrap(err, "search manga")
	}
	if len(resp.Errors) > 0 {
		return nil, errors.Errorf("search manga: graphql error: %s", resp.Errors[0].Message)
	}
	return resp.Data.Page.Media, nil
}

// SaveMangaFollow upserts the list entry for mediaID with the given status.
// Requires a prior Login.
func (c *Client) SaveMangaFollow(ctx context.Context, mediaID int, status MediaListStatus) (*ListEntry, error) {
	if status == "" {
		status = MediaListStatusCurrent
	}
	var resp struct {
		Data struct {
			SaveMediaListEntry ListEntry `json:"SaveMediaListEntry"`
		} `json:"data"`
		Errors []gqlError `json:"errors,omitempty"`
	}
	vars := map[string]any{"mediaId": mediaID, "status": status}
	if err := c.query(ctx, saveMediaListEntryMutation, vars, &resp); err != nil {
		return nil, errors.Wrap(err, "save manga follow")
	}
	if len(resp.Errors) > 0 {
		return nil, errors.Errorf("save manga follow: graphql error: %s", resp.Errors[0].Message)
	}
	return &resp.Data.SaveMediaListEntry, nil
}

// SaveFollow adapts SaveMangaFollow to the orchestrator's interface, mapping
// the MangaDex reading status onto the AniList list status.
func (c *Client) SaveFollow(ctx context.Context, mediaID int, status domain.ReadingStatus) error {
	_, err := c.SaveMangaFollow(ctx, mediaID, StatusFor(status))
	return err
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	body := map[string]any{"query": query, "variables": variables}
	return c.http.DoJSON(ctx, http.MethodPost, "", nil, body, out)
}

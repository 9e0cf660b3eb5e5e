// Package mangadex is the MangaDex adapter: credential-grant login and
// retrieval of the authenticated user's followed manga with reading statuses.
package mangadex

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Another0Noob/mangadex-export/internal/domain"
	"github.com/Another0Noob/mangadex-export/internal/httpapi"
)

const (
	baseURL = "https://api.mangadex.org"

	// MangaDex global limit is 5 req/s per client.
	rateLimitRequests = 5
	rateLimitDuration = time.Second

	pageLimit = 100
)

// Credentials are the MangaDex password-grant credentials.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Client is the MangaDex service adapter. It owns its HTTP client and token.
type Client struct {
	http    *httpapi.Client
	creds   Credentials
	authURL string
	log     zerolog.Logger
}

// NewClient creates a MangaDex adapter for the given credentials.
func NewClient(creds Credentials, log zerolog.Logger) *Client {
	return &Client{
		http: httpapi.NewClient(httpapi.Settings{
			BaseURL:  baseURL,
			Requests: rateLimitRequests,
			Per:      rateLimitDuration,
		}, log),
		creds:   creds,
		authURL: authURL,
		log:     log.With().Str("module", "mangadex").Logger(),
	}
}

// FetchFollows returns every followed manga with its reading status. Logs in
// first if no token is stored yet. A failure mid-pagination is returned as an
// error rather than a truncated list.
func (c *Client) FetchFollows(ctx context.Context) ([]domain.MangaEntry, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}

	statuses, err := c.readingStatuses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch reading statuses")
	}

	var entries []domain.MangaEntry
	offset := 0
	for {
		env, err := c.followsPage(ctx, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch follows page at offset %d", offset)
		}
		for _, m := range env.Data {
			if _, err := uuid.Parse(m.ID); err != nil {
				c.log.Warn().Str("id", m.ID).Msg("skipping manga with malformed id")
				continue
			}
			title := preferredTitle(m)
			if title == "" {
				c.log.Warn().Str("id", m.ID).Msg("skipping manga without any title")
				continue
			}
			status, ok := statuses[m.ID]
			if !ok {
				status = domain.ReadingStatusReading
			}
			entries = append(entries, domain.MangaEntry{
				SourceID: m.ID,
				Title:    title,
				Status:   status,
			})
		}

		offset += env.Limit
		if offset >= env.Total || env.Limit == 0 || len(env.Data) == 0 {
			break
		}
	}

	c.log.Info().Int("count", len(entries)).Msg("fetched followed manga")
	return entries, nil
}

func (c *Client) followsPage(ctx context.Context, offset int) (*collectionEnvelope, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageLimit))
	params.Set("offset", strconv.Itoa(offset))

	var env collectionEnvelope
	if err := c.do(ctx, http.MethodGet, "/user/follows/manga", params, nil, &env); err != nil {
		return nil, err
	}
	if env.Result == "error" {
		if len(env.Errors) > 0 {
			first := env.Errors[0]
			return nil, errors.Errorf("api error: %s (%d): %s", first.Title, first.Status, first.Detail)
		}
		return nil, errors.New("api error: result=error with no error details")
	}
	return &env, nil
}

func (c *Client) readingStatuses(ctx context.Context) (map[string]domain.ReadingStatus, error) {
	var wrapper struct {
		Result   string                          `json:"result"`
		Statuses map[string]domain.ReadingStatus `json:"statuses"`
	}
	if err := c.do(ctx, http.MethodGet, "/manga/status", nil, nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Statuses, nil
}

// do issues a request and retries once through a token refresh on a 401,
// then surfaces whatever error remains.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	err := c.http.DoJSON(ctx, method, endpoint, params, body, out)
	if err == nil || !httpapi.IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	if rerr := c.RefreshToken(ctx); rerr != nil {
		return errors.Wrap(rerr, "refresh token after 401")
	}
	return c.http.DoJSON(ctx, method, endpoint, params, body, out)
}

func (c *Client) ensureAuth(ctx context.Context) error {
	if c.http.Token() != nil {
		return nil
	}
	return c.Login(ctx)
}

// Package httpapi implements the shared HTTP client used by both remote
// service adapters: bearer-token auth, steady request pacing, header-driven
// rate-limit backoff and a bounded retry loop for 429 responses.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultWindow       = 60 * time.Second
	defaultThreshold    = 1
	defaultResetTo      = 60
	defaultRetryBackoff = 60 * time.Second
	defaultMaxRetries   = 3
	defaultUserAgent    = "MangaDex-Export/0.1 (https://github.com/Another0Noob/mangadex-export)"
)

// Token is an OAuth access token as returned by either service.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Settings configures a Client. Zero values fall back to defaults.
type Settings struct {
	BaseURL   string
	UserAgent string

	// Pacing: Requests per Per, enforced with a token bucket before the
	// header-driven budget check.
	Requests int
	Per      time.Duration

	// Header-driven budget: when the last X-RateLimit-Remaining value is at
	// or below Threshold and Window has not elapsed since the last request,
	// the client sleeps out the rest of the window. ResetTo is the assumed
	// budget after such a wait.
	Window    time.Duration
	Threshold int
	ResetTo   int

	// 429 handling.
	RetryBackoff time.Duration
	MaxRetries   int

	// RequireToken makes every request fail with ErrNotAuthenticated until
	// SetToken has been called.
	RequireToken bool
}

// Client talks to one fixed base URL. Not safe for concurrent use; each
// adapter owns exactly one instance (the sync loop is sequential).
type Client struct {
	httpClient *http.Client
	settings   Settings
	limiter    *rate.Limiter
	log        zerolog.Logger

	token *Token

	remaining   int
	lastRequest time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a client for the given service settings.
func NewClient(s Settings, log zerolog.Logger) *Client {
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if s.Requests <= 0 {
		s.Requests = 5
	}
	if s.Per <= 0 {
		s.Per = time.Second
	}
	if s.Window <= 0 {
		s.Window = defaultWindow
	}
	if s.Threshold <= 0 {
		s.Threshold = defaultThreshold
	}
	if s.ResetTo <= 0 {
		s.ResetTo = defaultResetTo
	}
	if s.RetryBackoff <= 0 {
		s.RetryBackoff = defaultRetryBackoff
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = defaultMaxRetries
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Minute},
		settings:   s,
		limiter:    rate.NewLimiter(rate.Every(s.Per/time.Duration(s.Requests)), s.Requests),
		log:        log.With().Str("module", "httpapi").Logger(),
		remaining:  s.ResetTo,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// SetToken stores the bearer token used on subsequent requests.
func (c *Client) SetToken(t *Token) {
	c.token = t
}

// Token returns the currently stored token, nil before login.
func (c *Client) Token() *Token {
	return c.token
}

// Do performs a request against the service base URL, waiting out the rate
// limit budget first and retrying 429 responses up to the retry budget.
// The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Response, error) {
	if c.settings.RequireToken && c.token == nil {
		return nil, ErrNotAuthenticated
	}

	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		bodyBytes = b
	}

	retries := 0
	for {
		if err := c.waitForBudget(ctx); err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, method, endpoint, params, bodyBytes)
		if err != nil {
			return nil, err
		}
		c.observe(resp)

		if resp.StatusCode == http.StatusTooManyRequests && retries < c.settings.MaxRetries {
			resp.Body.Close()
			retries++
			c.log.Warn().
				Int("retry", retries).
				Dur("backoff", c.settings.RetryBackoff).
				Msg("rate limited, backing off before retry")
			c.sleep(c.settings.RetryBackoff)
			continue
		}
		return resp, nil
	}
}

// DoJSON performs a request and decodes a 2xx response body into out.
// Non-2xx responses are returned as a StatusError.
func (c *Client) DoJSON(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	resp, err := c.Do(ctx, method, endpoint, params, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "decode response (body: %s)", string(b))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, body []byte) (*http.Response, error) {
	fullURL := c.settings.BaseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		tokenType := c.token.TokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		req.Header.Set("Authorization", tokenType+" "+c.token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	return resp, nil
}

// waitForBudget blocks until the next request is allowed to go out.
func (c *Client) waitForBudget(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit")
	}

	if c.remaining > c.settings.Threshold || c.lastRequest.IsZero() {
		return nil
	}
	wait := c.settings.Window - c.now().Sub(c.lastRequest)
	if wait > 0 {
		c.log.Warn().
			Int("remaining", c.remaining).
			Dur("wait", wait).
			Msg("request budget exhausted, waiting for window to elapse")
		c.sleep(wait)
	}
	c.remaining = c.settings.ResetTo
	c.lastRequest = c.now()
	return nil
}

// observe records rate-limit state surfaced by the response headers.
func (c *Client) observe(resp *http.Response) {
	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.remaining = n
		}
	}
	c.lastRequest = c.now()
}

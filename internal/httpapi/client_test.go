package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(Settings{
		BaseURL:      baseURL,
		Requests:     100,
		Per:          time.Second,
		Window:       60 * time.Second,
		Threshold:    1,
		RetryBackoff: 500 * time.Millisecond,
		MaxRetries:   3,
	}, zerolog.Nop())

	slept := &[]time.Duration{}
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return c, slept
}

func TestDoJSONRetriesRateLimited(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.DoJSON(context.Background(), http.MethodGet, "/thing", nil, nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 4, hits)

	// Three backoff sleeps, one per retry.
	require.Len(t, *slept, 3)
	for _, d := range *slept {
		assert.Equal(t, 500*time.Millisecond, d)
	}
}

func TestDoJSONSurfacesExhaustedRetries(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	err := c.DoJSON(context.Background(), http.MethodGet, "/thing", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	// Initial attempt plus the full retry budget.
	assert.Equal(t, 4, hits)
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	err := c.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Contains(t, err.Error(), "upstream broken")
}

func TestRequireTokenBeforeLogin(t *testing.T) {
	c := NewClient(Settings{BaseURL: "http://localhost", RequireToken: true}, zerolog.Nop())

	_, err := c.Do(context.Background(), http.MethodGet, "/", nil, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	err = c.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestWaitsWhenBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "1")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, slept := newTestClient(t, srv.URL)

	// First call observes remaining=1 from the headers.
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil))
	require.Empty(t, *slept)

	// Second call must wait out the rest of the window before sending.
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil))
	require.Len(t, *slept, 1)
	assert.Equal(t, 60*time.Second, (*slept)[0])
}

func TestBearerHeaderSetAfterToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	c.SetToken(&Token{AccessToken: "abc", TokenType: "Bearer"})

	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil))
	assert.Equal(t, "Bearer abc", got)
}

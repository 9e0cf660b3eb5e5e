package mangadex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Another0Noob/mangadex-export/internal/httpapi"
)

const authURL = "https://auth.mangadex.org/realms/mangadex/protocol/openid-connect/token"

// Login performs the OAuth2 password grant and stores the resulting token.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)

	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		return errors.Wrap(err, "mangadex login")
	}
	c.http.SetToken(token)
	c.log.Info().Msg("authenticated with MangaDex")
	return nil
}

// RefreshToken exchanges the stored refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context) error {
	current := c.http.Token()
	if current == nil || current.RefreshToken == "" {
		return httpapi.ErrNotAuthenticated
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", current.RefreshToken)
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)

	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		return errors.Wrap(err, "mangadex token refresh")
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	c.http.SetToken(token)
	return nil
}

// tokenRequest posts a form to the auth realm, which lives on a different
// host than the API and is not subject to the API rate limit.
func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*httpapi.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &httpapi.StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	var token httpapi.Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, errors.Wrap(err, "decode token")
	}
	return &token, nil
}

package anilist

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Another0Noob/mangadex-export/internal/httpapi"
)

// bouncePage moves the token out of the URL fragment, which never reaches a
// server, into query parameters on a second local request.
const bouncePage = `<!DOCTYPE html>
<html>
<head><title>AniList Authorization</title></head>
<body>
<h1>Processing authorization...</h1>
<script>
	const fragment = window.location.hash.substring(1);
	const params = new URLSearchParams(fragment);
	fetch('/callback?' + params.toString())
		.then(response => response.text())
		.then(text => { document.body.innerHTML = text; })
		.catch(error => { document.body.innerHTML = 'Error: ' + error; });
</script>
</body>
</html>
`

// Login performs the implicit-grant OAuth flow: open the authorize URL in the
// user's browser and wait for the token to arrive on the local listener bound
// to the redirect URI. Blocks until the flow completes or ctx is cancelled.
func (c *Client) Login(ctx context.Context) error {
	redirect, err := url.Parse(c.creds.RedirectURI)
	if err != nil {
		return errors.Wrapf(err, "parse redirect uri %q", c.creds.RedirectURI)
	}
	addr := redirect.Host
	if addr == "" {
		addr = "localhost:8080"
	}

	tokens := make(chan *httpapi.Token, 1)
	fails := make(chan error, 1)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	srv := &http.Server{Handler: callbackHandler(tokens, fails)}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := fmt.Sprintf("%s?client_id=%s&response_type=token", authorizeURL, url.QueryEscape(c.creds.ClientID))
	c.log.Info().Str("listen", addr).Msg("waiting for browser authorization")
	if err := c.openURL(authURL); err != nil {
		c.log.Warn().Err(err).Str("url", authURL).Msg("could not open browser, open the URL manually")
	}

	select {
	case token := <-tokens:
		c.http.SetToken(token)
		c.log.Info().Msg("authenticated with AniList")
		return nil
	case err := <-fails:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callbackHandler serves the two-route listener for the implicit grant:
// "/" hands the browser the fragment-bounce page, "/callback" receives the
// token (or provider error) as query parameters.
func callbackHandler(tokens chan<- *httpapi.Token, fails chan<- error) http.Handler {
	failOnce := func(err error) {
		select {
		case fails <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			desc := r.URL.Query().Get("error_description")
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Authorization failed: %s - %s", e, desc)
			failOnce(errors.Errorf("authorization failed: %s: %s", e, desc))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, bouncePage)
	})
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			desc := q.Get("error_description")
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Authorization failed: %s - %s", e, desc)
			failOnce(errors.Errorf("authorization failed: %s: %s", e, desc))
			return
		}

		access := q.Get("access_token")
		if access == "" {
			// The provider sometimes round-trips here before delivering
			// the fragment; keep the window open.
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "Waiting for authorization... (no access token yet)")
			return
		}

		tokenType := q.Get("token_type")
		if tokenType == "" {
			tokenType = "Bearer"
		}
		expiresIn, _ := strconv.Atoi(q.Get("expires_in"))

		select {
		case tokens <- &httpapi.Token{AccessToken: access, TokenType: tokenType, ExpiresIn: expiresIn}:
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "Authorization successful! You can close this window.")
	})
	return mux
}

// openBrowser opens the URL with the system's default handler.
func openBrowser(input string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
		cmd = exec.Command(rundll, "url.dll,FileProtocolHandler", input)
	case "darwin":
		cmd = exec.Command("open", input)
	case "linux":
		cmd = exec.Command("xdg-open", input)
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}

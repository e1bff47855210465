package auth

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gizmosql/flightsql-oauth/internal/browser"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	serverPollInterval = time.Second
	serverPollTimeout  = 5 * time.Minute

	// ServerHTTPTimeout bounds each individual initiate/poll request.
	ServerHTTPTimeout = 10 * time.Second

	oauthInitiatePath = "/oauth/initiate"
	oauthTokenPath    = "/oauth/token/"
)

// ServerSideTokenProvider implements the delegated OAuth flow: the Flight
// server's companion OAuth HTTP service performs the confidential-client code
// exchange, and this provider only initiates a session, sends the user to the
// returned authorization URL, and polls for the resulting token.
//
// Tokens are cached in a SharedTokenState keyed by the service base URL and
// have no client-side expiry; the server owns refresh.
type ServerSideTokenProvider struct {
	baseURL      string
	httpClient   *http.Client
	openBrowser  func(url string) error
	pollInterval time.Duration
	pollTimeout  time.Duration
	state        *SharedTokenState
}

// NewServerSideTokenProvider creates a provider for the OAuth service at
// baseURL. The httpClient should carry any TLS or proxy settings the
// deployment needs; nil falls back to a client with the default request
// timeout. A nil cache uses the process-scoped default.
func NewServerSideTokenProvider(baseURL string, httpClient *http.Client, cache *TokenCache) *ServerSideTokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: ServerHTTPTimeout}
	}
	if cache == nil {
		cache = DefaultTokenCache()
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &ServerSideTokenProvider{
		baseURL:      baseURL,
		httpClient:   httpClient,
		openBrowser:  browser.OpenURL,
		pollInterval: serverPollInterval,
		pollTimeout:  serverPollTimeout,
		state:        cache.State(baseURL),
	}
}

// Token returns the cached token or runs the delegated flow. See
// TokenProvider.
func (p *ServerSideTokenProvider) Token(ctx context.Context) (string, error) {
	if token := p.state.CachedToken(); token != nil {
		return token.Value, nil
	}

	p.state.mu.Lock()
	defer p.state.mu.Unlock()

	if token := p.state.CachedToken(); token != nil {
		return token.Value, nil
	}

	value, err := p.performServerSideFlow(ctx)
	if err != nil {
		return "", err
	}
	p.state.SetToken(&TokenInfo{Value: value})
	return value, nil
}

// performServerSideFlow initiates a session, opens the browser, and polls the
// session status until completion, error, or timeout.
func (p *ServerSideTokenProvider) performServerSideFlow(ctx context.Context) (string, error) {
	body, status, err := p.get(ctx, p.baseURL+oauthInitiatePath)
	if err != nil {
		return "", authErrorWithCause(ErrServerFlowFailed, "OAuth initiate request failed", err)
	}
	if status != http.StatusOK {
		return "", authErrorf(ErrServerFlowFailed, "OAuth initiate failed with status %d: %s", status, strings.TrimSpace(string(body)))
	}

	sessionUUID := gjson.GetBytes(body, "session_uuid").String()
	authURL := gjson.GetBytes(body, "auth_url").String()
	if sessionUUID == "" || authURL == "" {
		return "", authErrorf(ErrServerFlowFailed, "OAuth initiate response missing session_uuid or auth_url")
	}
	log.Debugf("Started server-side OAuth session %s", sessionUUID)

	log.Info("Opening browser for server-side SSO login...")
	if err = p.openBrowser(authURL); err != nil {
		return "", authErrorWithCause(ErrBrowserOpenFailed,
			"Cannot open browser for SSO login. Please open this URL manually: "+authURL, err)
	}

	log.Info("Waiting for authentication to complete...")
	return p.pollForToken(ctx, sessionUUID)
}

// pollForToken polls the session status endpoint at a fixed interval.
// Non-200 responses and transport errors are transient and retried until the
// overall timeout.
func (p *ServerSideTokenProvider) pollForToken(ctx context.Context, sessionUUID string) (string, error) {
	deadline := time.Now().Add(p.pollTimeout)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", NewAuthenticationError(ErrServerFlowFailed, ctx.Err())
		case <-ticker.C:
		}

		body, status, err := p.get(ctx, p.baseURL+oauthTokenPath+sessionUUID)
		if err != nil {
			log.Debugf("OAuth token poll failed, retrying: %v", err)
			continue
		}
		if status != http.StatusOK {
			continue
		}

		switch gjson.GetBytes(body, "status").String() {
		case "complete":
			token := gjson.GetBytes(body, "token").String()
			if token == "" {
				return "", authErrorf(ErrServerFlowFailed, "OAuth server returned complete status but no token")
			}
			log.Info("Server-side OAuth authentication successful")
			return token, nil
		case "error":
			errMsg := gjson.GetBytes(body, "error").String()
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return "", authErrorf(ErrServerFlowFailed, "Server-side OAuth authentication failed: %s", errMsg)
		}
		// "pending": keep polling.
	}

	return "", authErrorf(ErrPollTimeout,
		"Server-side OAuth authentication timed out after %d seconds. Please try connecting again.", int(p.pollTimeout.Seconds()))
}

func (p *ServerSideTokenProvider) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

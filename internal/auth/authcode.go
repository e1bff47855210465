package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gizmosql/flightsql-oauth/internal/browser"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// expirationBuffer is how long before expiry a cached token stops being
	// served, leaving headroom for in-flight calls.
	expirationBuffer = 30 * time.Second

	// defaultExpirationSeconds is assumed when the token response carries no
	// lifetime.
	defaultExpirationSeconds = 3600
)

// AuthorizationCodeTokenProvider implements the OAuth authorization code flow
// with PKCE. It opens a browser for the user to authenticate with their
// identity provider, receives the redirect on a loopback callback server, and
// exchanges the authorization code for tokens.
//
// Tokens are cached in a SharedTokenState keyed by (token endpoint, client
// id), so parallel connections to the same identity provider share one login
// instead of each triggering a browser popup.
type AuthorizationCodeTokenProvider struct {
	oauthConfig     *oauth2.Config
	httpClient      *http.Client
	openBrowser     func(url string) error
	callbackTimeout time.Duration
	state           *SharedTokenState
}

// NewAuthorizationCodeTokenProvider creates a provider for the given
// endpoints and client. A nil httpClient falls back to http.DefaultClient
// semantics; a nil cache uses the process-scoped default.
func NewAuthorizationCodeTokenProvider(authorizationURL, tokenURL, clientID, clientSecret, scope string, httpClient *http.Client, cache *TokenCache) *AuthorizationCodeTokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cache == nil {
		cache = DefaultTokenCache()
	}

	return &AuthorizationCodeTokenProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizationURL,
				TokenURL: tokenURL,
				// client_secret_post; also the style some IdPs require for
				// public clients that send only client_id.
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: strings.Fields(scope),
		},
		httpClient:      httpClient,
		openBrowser:     browser.OpenURL,
		callbackTimeout: DefaultCallbackTimeout,
		state:           cache.State(authCodeCacheKey(tokenURL, clientID)),
	}
}

// Token returns a valid bearer token, refreshing or re-authenticating as
// needed. See TokenProvider.
func (p *AuthorizationCodeTokenProvider) Token(ctx context.Context) (string, error) {
	if token := p.state.CachedToken(); token != nil && !token.ExpiresWithin(expirationBuffer) {
		return token.Value, nil
	}

	p.state.mu.Lock()
	defer p.state.mu.Unlock()

	// Another caller may have finished a flow while we waited on the lock.
	if token := p.state.CachedToken(); token != nil && !token.ExpiresWithin(expirationBuffer) {
		return token.Value, nil
	}

	// Try refresh first. A refresh failure is never surfaced; the stale
	// refresh credential is dropped and a fresh interactive flow follows.
	if p.state.refreshToken != "" {
		refreshed, err := p.refreshAccessToken(ctx)
		if err == nil {
			p.state.SetToken(refreshed)
			return refreshed.Value, nil
		}
		log.Debugf("Token refresh failed, falling back to browser flow: %v", err)
		p.state.refreshToken = ""
	}

	token, err := p.performBrowserFlow(ctx)
	if err != nil {
		return "", err
	}
	p.state.SetToken(token)
	return token.Value, nil
}

// performBrowserFlow runs the full interactive flow: PKCE material, loopback
// callback server, browser redirect, and code exchange.
func (p *AuthorizationCodeTokenProvider) performBrowserFlow(ctx context.Context) (*TokenInfo, error) {
	pkce, err := GeneratePKCECodes()
	if err != nil {
		return nil, NewAuthenticationError(ErrExchangeFailed, err)
	}
	state := uuid.NewString()

	callbackServer, err := StartCallbackServer(state)
	if err != nil {
		return nil, err
	}
	defer callbackServer.Close()

	redirectURI := callbackServer.RedirectURI()

	conf := *p.oauthConfig
	conf.RedirectURL = redirectURI
	authURL := conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method()))

	log.Info("Opening browser for SSO login...")
	if err = p.openBrowser(authURL); err != nil {
		// No non-interactive fallback exists; tell the user where to go.
		return nil, authErrorWithCause(ErrBrowserOpenFailed,
			"Cannot open browser for SSO login. Please open this URL manually: "+authURL, err)
	}

	code, err := callbackServer.WaitForCode(p.callbackTimeout)
	if err != nil {
		return nil, err
	}
	log.Debug("Received authorization code, exchanging for tokens...")

	return p.exchangeCodeForTokens(ctx, code, redirectURI, pkce.CodeVerifier)
}

// exchangeCodeForTokens redeems the authorization code with the PKCE verifier
// at the token endpoint.
func (p *AuthorizationCodeTokenProvider) exchangeCodeForTokens(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenInfo, error) {
	conf := *p.oauthConfig
	conf.RedirectURL = redirectURI

	token, err := conf.Exchange(p.oauthContext(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, exchangeError(err)
	}

	return p.tokenInfoFromResponse(token, "authorization code flow"), nil
}

// refreshAccessToken exchanges the cached refresh credential for a new token.
// Caller holds the state lock.
func (p *AuthorizationCodeTokenProvider) refreshAccessToken(ctx context.Context) (*TokenInfo, error) {
	source := p.oauthConfig.TokenSource(p.oauthContext(ctx), &oauth2.Token{RefreshToken: p.state.refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, err
	}
	return p.tokenInfoFromResponse(token, "refresh"), nil
}

// tokenInfoFromResponse applies the token selection policy: prefer the ID
// token when present, since some identity providers issue opaque access
// tokens that the server cannot verify externally. Lifetime comes from the
// access token's advertised lifetime. Caller holds the state lock.
func (p *AuthorizationCodeTokenProvider) tokenInfoFromResponse(token *oauth2.Token, flow string) *TokenInfo {
	if token.RefreshToken != "" {
		p.state.refreshToken = token.RefreshToken
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultExpirationSeconds * time.Second)
	}

	value := token.AccessToken
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		value = idToken
		logTokenIdentity(idToken)
		log.Infof("Obtained ID token via %s", flow)
	} else {
		log.Infof("Obtained access token via %s (no ID token)", flow)
	}

	return &TokenInfo{Value: value, ExpiresAt: expiresAt}
}

// oauthContext routes the oauth2 package's HTTP calls through the provider's
// (possibly proxy-aware) client.
func (p *AuthorizationCodeTokenProvider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// exchangeError converts an oauth2 retrieval failure into an authentication
// error carrying the endpoint's status and body for diagnosis.
func exchangeError(err error) *AuthenticationError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return authErrorf(ErrExchangeFailed, "Token exchange failed with status %d: %s",
			retrieveErr.Response.StatusCode, strings.TrimSpace(string(retrieveErr.Body)))
	}
	return NewAuthenticationError(ErrExchangeFailed, err)
}

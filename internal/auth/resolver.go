package auth

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/gizmosql/flightsql-oauth/internal/config"
	"github.com/gizmosql/flightsql-oauth/internal/util"
	log "github.com/sirupsen/logrus"
)

// Flow names accepted in the configuration.
const (
	FlowAuthorizationCode = "authorization_code"
	FlowServerSide        = "server_side"
)

// NewTokenProvider validates the OAuth configuration and builds the matching
// token provider, resolving OIDC discovery when explicit endpoints are
// absent. discoveredURL, if non-empty, is a server-advertised OAuth base URL
// (from the discovery handshake) that takes precedence over the configured
// one for the server_side flow. Providers share the process-scoped token
// cache.
func NewTokenProvider(ctx context.Context, cfg *config.Config, discoveredURL string) (TokenProvider, error) {
	return NewTokenProviderWithCache(ctx, cfg, discoveredURL, DefaultTokenCache())
}

// NewTokenProviderWithCache is NewTokenProvider with an explicit cache,
// mainly for tests and embedders that manage their own cache lifetime.
func NewTokenProviderWithCache(ctx context.Context, cfg *config.Config, discoveredURL string, cache *TokenCache) (TokenProvider, error) {
	switch cfg.OAuth.Flow {
	case FlowAuthorizationCode:
		return newAuthorizationCodeProvider(ctx, cfg, cache)
	case FlowServerSide:
		return newServerSideProvider(cfg, discoveredURL, cache)
	case "":
		return nil, authErrorf(ErrInvalidConfiguration, "oauth.flow is required")
	default:
		return nil, authErrorf(ErrInvalidConfiguration, "unsupported OAuth flow: %q", cfg.OAuth.Flow)
	}
}

func newAuthorizationCodeProvider(ctx context.Context, cfg *config.Config, cache *TokenCache) (TokenProvider, error) {
	oc := cfg.OAuth
	if oc.ClientID == "" {
		return nil, authErrorf(ErrInvalidConfiguration, "client-id is required for the authorization_code flow")
	}

	authorizationURL := oc.AuthorizationURL
	tokenURL := oc.TokenURL
	httpClient := util.SetProxy(cfg, &http.Client{})

	if authorizationURL == "" || tokenURL == "" {
		if oc.Issuer == "" {
			return nil, authErrorf(ErrInvalidConfiguration,
				"either authorization-url and token-url or issuer is required for the authorization_code flow")
		}
		endpoints, err := DiscoverOidcEndpoints(ctx, httpClient, oc.Issuer)
		if err != nil {
			return nil, err
		}
		if authorizationURL == "" {
			authorizationURL = endpoints.AuthorizationEndpoint
		}
		if tokenURL == "" {
			tokenURL = endpoints.TokenEndpoint
		}
	}

	return NewAuthorizationCodeTokenProvider(authorizationURL, tokenURL, oc.ClientID, oc.ClientSecret, oc.Scope, httpClient, cache), nil
}

func newServerSideProvider(cfg *config.Config, discoveredURL string, cache *TokenCache) (TokenProvider, error) {
	oc := cfg.OAuth

	baseURL := discoveredURL
	if baseURL == "" {
		baseURL = oc.ServerBaseURL
	} else if oc.ServerBaseURL != "" && oc.ServerBaseURL != discoveredURL {
		log.Debugf("Using server-advertised OAuth URL %s over configured %s", discoveredURL, oc.ServerBaseURL)
	}
	if baseURL == "" {
		return nil, authErrorf(ErrInvalidConfiguration, "server-base-url is required for the server_side flow")
	}

	httpClient := util.SetProxy(cfg, &http.Client{Timeout: ServerHTTPTimeout})
	if oc.DisableCertVerification {
		log.Warn("TLS certificate verification disabled for the OAuth endpoint")
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		} else {
			httpClient.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		}
	}

	return NewServerSideTokenProvider(baseURL, httpClient, cache), nil
}

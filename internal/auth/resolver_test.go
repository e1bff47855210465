package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gizmosql/flightsql-oauth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverRejectsMissingFlow(t *testing.T) {
	_, err := NewTokenProviderWithCache(context.Background(), &config.Config{}, "", NewTokenCache())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "oauth.flow")
}

func TestResolverRejectsUnknownFlow(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{Flow: "device_code"}}
	_, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_code")
}

func TestResolverAuthCodeRequiresClientID(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:   FlowAuthorizationCode,
		Issuer: "https://idp.example",
	}}
	_, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "client-id")
}

func TestResolverAuthCodeRequiresEndpointsOrIssuer(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:     FlowAuthorizationCode,
		ClientID: "client-1",
	}}
	_, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "issuer")
}

func TestResolverAuthCodeExplicitEndpoints(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:             FlowAuthorizationCode,
		ClientID:         "client-1",
		AuthorizationURL: "https://idp.example/auth",
		TokenURL:         "https://idp.example/token",
	}}

	provider, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.NoError(t, err)

	authCode, ok := provider.(*AuthorizationCodeTokenProvider)
	require.True(t, ok)
	assert.Equal(t, "https://idp.example/auth", authCode.oauthConfig.Endpoint.AuthURL)
	assert.Equal(t, "https://idp.example/token", authCode.oauthConfig.Endpoint.TokenURL)
}

func TestResolverAuthCodeResolvesDiscovery(t *testing.T) {
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/openid-configuration", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{
			"authorization_endpoint": "%s/authorize",
			"token_endpoint": "%s/oauth/token"
		}`, "https://idp.example", "https://idp.example")
	}))
	defer issuer.Close()

	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:     FlowAuthorizationCode,
		ClientID: "client-1",
		Issuer:   issuer.URL,
	}}

	provider, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.NoError(t, err)

	authCode, ok := provider.(*AuthorizationCodeTokenProvider)
	require.True(t, ok)
	assert.Equal(t, "https://idp.example/authorize", authCode.oauthConfig.Endpoint.AuthURL)
	assert.Equal(t, "https://idp.example/oauth/token", authCode.oauthConfig.Endpoint.TokenURL)
}

func TestResolverAuthCodeDiscoveryFailure(t *testing.T) {
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authorization_endpoint": "https://idp.example/auth"}`))
	}))
	defer issuer.Close()

	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:     FlowAuthorizationCode,
		ClientID: "client-1",
		Issuer:   issuer.URL,
	}}

	_, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_endpoint")
}

func TestResolverServerSideRequiresBaseURL(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{Flow: FlowServerSide}}
	_, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "server-base-url")
}

func TestResolverServerSideUsesConfiguredBaseURL(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:          FlowServerSide,
		ServerBaseURL: "https://flight.example:31339/",
	}}

	provider, err := NewTokenProviderWithCache(context.Background(), cfg, "", NewTokenCache())
	require.NoError(t, err)

	serverSide, ok := provider.(*ServerSideTokenProvider)
	require.True(t, ok)
	assert.Equal(t, "https://flight.example:31339", serverSide.baseURL)
}

func TestResolverServerSidePrefersDiscoveredURL(t *testing.T) {
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:          FlowServerSide,
		ServerBaseURL: "https://configured.example",
	}}

	provider, err := NewTokenProviderWithCache(context.Background(), cfg, "https://advertised.example", NewTokenCache())
	require.NoError(t, err)

	serverSide, ok := provider.(*ServerSideTokenProvider)
	require.True(t, ok)
	assert.Equal(t, "https://advertised.example", serverSide.baseURL)
}

func TestResolverServerSideSharedCacheByBaseURL(t *testing.T) {
	cache := NewTokenCache()
	cfg := &config.Config{OAuth: config.OAuthConfig{
		Flow:          FlowServerSide,
		ServerBaseURL: "https://flight.example:31339",
	}}

	providerA, err := NewTokenProviderWithCache(context.Background(), cfg, "", cache)
	require.NoError(t, err)
	providerB, err := NewTokenProviderWithCache(context.Background(), cfg, "", cache)
	require.NoError(t, err)

	assert.Same(t,
		providerA.(*ServerSideTokenProvider).state,
		providerB.(*ServerSideTokenProvider).state)
}

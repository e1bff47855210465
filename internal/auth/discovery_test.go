package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverOidcEndpoints(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"issuer": "https://idp.example",
			"authorization_endpoint": "https://idp.example/auth",
			"token_endpoint": "https://idp.example/token"
		}`))
	}))
	defer server.Close()

	// Trailing slash on the issuer must be stripped before appending the
	// well-known path.
	endpoints, err := DiscoverOidcEndpoints(context.Background(), server.Client(), server.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "/.well-known/openid-configuration", requestedPath)
	assert.Equal(t, "https://idp.example/auth", endpoints.AuthorizationEndpoint)
	assert.Equal(t, "https://idp.example/token", endpoints.TokenEndpoint)
}

func TestDiscoverOidcEndpointsMissingTokenEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authorization_endpoint": "https://idp.example/auth"}`))
	}))
	defer server.Close()

	_, err := DiscoverOidcEndpoints(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "token_endpoint")
}

func TestDiscoverOidcEndpointsMissingAuthorizationEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_endpoint": "https://idp.example/token"}`))
	}))
	defer server.Close()

	_, err := DiscoverOidcEndpoints(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "authorization_endpoint")
}

func TestDiscoverOidcEndpointsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := DiscoverOidcEndpoints(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrDiscoveryFailed))
}

func TestDiscoverOidcEndpointsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := DiscoverOidcEndpoints(context.Background(), server.Client(), server.URL)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrDiscoveryFailed))
}

func TestDiscoverOidcEndpointsConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := DiscoverOidcEndpoints(context.Background(), &http.Client{}, url)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrDiscoveryFailed))
}

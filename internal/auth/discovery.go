package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// wellKnownPath is the standard OIDC discovery document location relative to
// the issuer.
const wellKnownPath = "/.well-known/openid-configuration"

// OidcEndpoints holds the identity provider endpoints resolved from an OIDC
// discovery document.
type OidcEndpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// DiscoverOidcEndpoints fetches the issuer's well-known discovery document
// and extracts the authorization and token endpoints. It performs one network
// fetch per call; callers cache the result if they reuse it.
func DiscoverOidcEndpoints(ctx context.Context, httpClient *http.Client, issuerURL string) (*OidcEndpoints, error) {
	base := strings.TrimSuffix(issuerURL, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+wellKnownPath, nil)
	if err != nil {
		return nil, NewAuthenticationError(ErrDiscoveryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, authErrorWithCause(ErrDiscoveryFailed,
			fmt.Sprintf("Failed to connect to OIDC issuer at %s", issuerURL), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAuthenticationError(ErrDiscoveryFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, authErrorf(ErrDiscoveryFailed,
			"OIDC discovery request to %s failed with status %d: %s", issuerURL, resp.StatusCode, string(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, authErrorf(ErrDiscoveryFailed,
			"OIDC discovery document from %s is not valid JSON", issuerURL)
	}

	authEndpoint := gjson.GetBytes(body, "authorization_endpoint").String()
	tokenEndpoint := gjson.GetBytes(body, "token_endpoint").String()

	if authEndpoint == "" {
		return nil, authErrorf(ErrInvalidConfiguration,
			"OIDC discovery document from %s missing authorization_endpoint", issuerURL)
	}
	if tokenEndpoint == "" {
		return nil, authErrorf(ErrInvalidConfiguration,
			"OIDC discovery document from %s missing token_endpoint", issuerURL)
	}

	return &OidcEndpoints{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
	}, nil
}

package flight

import (
	"context"

	"github.com/gizmosql/flightsql-oauth/internal/auth"
)

// BearerCredentials injects the token provider's current token as a bearer
// credential on every RPC. Acquisition (browser flow, polling) happens inside
// the provider on the first call and whenever the cached token nears expiry.
type BearerCredentials struct {
	provider      auth.TokenProvider
	allowInsecure bool
}

// NewBearerCredentials wraps a token provider as gRPC per-RPC credentials.
// allowInsecureTransport permits use over plaintext connections, for local
// development only.
func NewBearerCredentials(provider auth.TokenProvider, allowInsecureTransport bool) *BearerCredentials {
	return &BearerCredentials{provider: provider, allowInsecure: allowInsecureTransport}
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c *BearerCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token, err := c.provider.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c *BearerCredentials) RequireTransportSecurity() bool {
	return !c.allowInsecure
}

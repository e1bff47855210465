// Package auth implements credential acquisition for the Flight SQL client:
// PKCE generation, OIDC endpoint discovery, the loopback callback server, the
// browser and server-side token providers, and the shared token cache that
// guarantees a single interactive flow per logical identity.
package auth

import (
	"context"
	"time"
)

// TokenInfo is an immutable bearer token value with its expiry. A newer
// TokenInfo supersedes an older one; instances are never mutated in place.
type TokenInfo struct {
	Value     string
	ExpiresAt time.Time
}

// ExpiresWithin reports whether the token expires within the given buffer.
// A zero ExpiresAt means the token has no client-side expiry.
func (t *TokenInfo) ExpiresWithin(buffer time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().Add(buffer).Before(t.ExpiresAt)
}

// TokenProvider produces a valid bearer token for authenticating Flight
// calls, running the underlying acquisition flow when no cached token is
// usable.
type TokenProvider interface {
	// Token returns a valid bearer token string, acquiring or refreshing one
	// if necessary. Concurrent calls for the same logical identity share a
	// single acquisition flow.
	Token(ctx context.Context) (string, error)
}

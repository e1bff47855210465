package auth

import (
	"sync"
	"sync/atomic"
)

// TokenCache is a process-wide map from cache key to shared credential state.
// Connections requesting a token for the same key share one SharedTokenState
// and therefore one acquisition flow; distinct keys proceed independently.
//
// Entries are created lazily and live for the lifetime of the cache. There is
// no eviction: cardinality is bounded by distinct identity configurations,
// not by connection count.
type TokenCache struct {
	mu     sync.Mutex
	states map[string]*SharedTokenState
}

// SharedTokenState holds the cached token and refresh credential for one
// cache key. The mutex serializes acquisition flows; the token itself is
// swapped atomically so the fast path can read it without locking.
type SharedTokenState struct {
	// mu guards refreshToken and serializes acquisition flows so that at most
	// one interactive or exchange flow is in flight per key.
	mu sync.Mutex

	// refreshToken is the opaque refresh credential, if the identity provider
	// issued one. Guarded by mu.
	refreshToken string

	token atomic.Pointer[TokenInfo]
}

// CachedToken returns the most recently cached token, or nil. Lock-free.
func (s *SharedTokenState) CachedToken() *TokenInfo {
	return s.token.Load()
}

// SetToken atomically publishes a new cached token.
func (s *SharedTokenState) SetToken(t *TokenInfo) {
	s.token.Store(t)
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{states: make(map[string]*SharedTokenState)}
}

// defaultTokenCache is the process-scoped cache shared by providers built
// through the resolver. Multiple connections from one process to the same
// identity provider share tokens instead of each opening a browser.
var defaultTokenCache = NewTokenCache()

// DefaultTokenCache returns the process-scoped token cache.
func DefaultTokenCache() *TokenCache {
	return defaultTokenCache
}

// State returns the shared state for the given cache key, creating it if
// necessary. Insertion is atomic with respect to other keys and callers.
func (c *TokenCache) State(key string) *SharedTokenState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[key]
	if !ok {
		state = &SharedTokenState{}
		c.states[key] = state
	}
	return state
}

// authCodeCacheKey identifies the credential scope of the authorization code
// flow: one logical identity per (token endpoint, client id) pair.
func authCodeCacheKey(tokenURL, clientID string) string {
	return tokenURL + "|" + clientID
}

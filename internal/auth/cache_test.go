package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheStateGetOrCreate(t *testing.T) {
	cache := NewTokenCache()

	a := cache.State("key-a")
	require.NotNil(t, a)
	assert.Same(t, a, cache.State("key-a"))
	assert.NotSame(t, a, cache.State("key-b"))
}

func TestTokenCacheConcurrentInsertion(t *testing.T) {
	cache := NewTokenCache()

	const callers = 32
	states := make([]*SharedTokenState, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = cache.State("shared-key")
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, states[0], states[i])
	}
}

func TestSharedTokenStateAtomicSwap(t *testing.T) {
	state := &SharedTokenState{}
	assert.Nil(t, state.CachedToken())

	first := &TokenInfo{Value: "first", ExpiresAt: time.Now().Add(time.Hour)}
	state.SetToken(first)
	assert.Same(t, first, state.CachedToken())

	// A newer token supersedes, never patches.
	second := &TokenInfo{Value: "second", ExpiresAt: time.Now().Add(2 * time.Hour)}
	state.SetToken(second)
	assert.Same(t, second, state.CachedToken())
	assert.Equal(t, "first", first.Value)
}

func TestTokenInfoExpiresWithin(t *testing.T) {
	fresh := &TokenInfo{Value: "v", ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, fresh.ExpiresWithin(30*time.Second))

	closeToExpiry := &TokenInfo{Value: "v", ExpiresAt: time.Now().Add(10 * time.Second)}
	assert.True(t, closeToExpiry.ExpiresWithin(30*time.Second))

	expired := &TokenInfo{Value: "v", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, expired.ExpiresWithin(0))

	// Zero expiry means no client-side expiry at all.
	serverOwned := &TokenInfo{Value: "v"}
	assert.False(t, serverOwned.ExpiresWithin(24*time.Hour))
}

func TestAuthCodeCacheKey(t *testing.T) {
	assert.Equal(t, "https://idp.example/token|client-1",
		authCodeCacheKey("https://idp.example/token", "client-1"))
	assert.NotEqual(t,
		authCodeCacheKey("https://idp.example/token", "client-1"),
		authCodeCacheKey("https://idp.example/token", "client-2"))
}

package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_NoProxies(t *testing.T) {
	pool := NewPool(nil)

	for i := 0; i < 20; i++ {
		id, err := pool.Next()
		require.NoError(t, err)
		assert.Empty(t, id.Proxy)
		assert.Contains(t, DefaultUserAgents, id.UserAgent)
	}
	assert.False(t, pool.Exhausted())
}

func TestPool_NormalizesProxies(t *testing.T) {
	pool := NewPool([]string{" http://a:1 ", "", "http://a:1", "http://b:2"})
	assert.Equal(t, 2, pool.Remaining())
}

func TestPool_EvictedProxyNeverReturned(t *testing.T) {
	proxies := []string{"http://a:1", "http://b:2", "http://c:3"}
	pool := NewPool(proxies)

	require.True(t, pool.Evict("http://b:2"))
	assert.False(t, pool.Evict("http://b:2"), "second eviction is a no-op")
	assert.True(t, pool.Evicted("http://b:2"))

	for i := 0; i < 200; i++ {
		id, err := pool.Next()
		require.NoError(t, err)
		assert.NotEqual(t, "http://b:2", id.Proxy)
	}
}

func TestPool_SingleProxyExhaustion(t *testing.T) {
	pool := NewPool([]string{"http://only:1"})

	id, err := pool.Next()
	require.NoError(t, err)
	assert.Equal(t, "http://only:1", id.Proxy)

	pool.Evict(id.Proxy)
	assert.True(t, pool.Exhausted())

	_, err = pool.Next()
	assert.ErrorIs(t, err, ErrProxiesExhausted)
}

func TestPool_WithRandAndAgents(t *testing.T) {
	pool := NewPool([]string{"http://a:1", "http://b:2"},
		WithUserAgents([]string{"ua-0", "ua-1"}),
		WithRand(func(n int) int { return n - 1 }),
	)

	id, err := pool.Next()
	require.NoError(t, err)
	assert.Equal(t, Identity{UserAgent: "ua-1", Proxy: "http://b:2"}, id)
}

func TestPool_ConcurrentEviction(t *testing.T) {
	proxies := make([]string, 50)
	for i := range proxies {
		proxies[i] = "http://p" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + ":1"
	}
	pool := NewPool(proxies)

	var wg sync.WaitGroup
	for _, p := range proxies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Next()
			pool.Evict(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, pool.Remaining())
	_, err := pool.Next()
	assert.ErrorIs(t, err, ErrProxiesExhausted)
}

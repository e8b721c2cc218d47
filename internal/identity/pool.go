package identity

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrProxiesExhausted is returned by Next once every configured proxy has
// been evicted. It is fatal for the run.
var ErrProxiesExhausted = errors.New("proxy pool exhausted")

// Identity is the header/proxy combination used for one fetch attempt.
type Identity struct {
	UserAgent string

	// Proxy is the proxy URL, or empty for a direct connection.
	Proxy string
}

// Pool hands out identities and tracks proxy eviction.
//
// Pool is safe for concurrent use; it is shared by every worker of a run.
type Pool struct {
	mu         sync.Mutex
	agents     []string
	proxies    []string
	evicted    map[string]bool
	configured bool
	intn       func(n int) int
}

// Option configures a Pool.
type Option func(*Pool)

// WithUserAgents replaces the User-Agent rotation.
func WithUserAgents(agents []string) Option {
	return func(p *Pool) {
		if len(agents) > 0 {
			p.agents = append([]string(nil), agents...)
		}
	}
}

// WithRand replaces the random index source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(p *Pool) {
		if intn != nil {
			p.intn = intn
		}
	}
}

// NewPool creates a pool over the given proxies. Blank and duplicate entries
// are dropped. An empty list means direct connections for the whole run.
func NewPool(proxies []string, opts ...Option) *Pool {
	normalized := normalizeProxyList(proxies)
	p := &Pool{
		agents:     DefaultUserAgents,
		proxies:    normalized,
		evicted:    make(map[string]bool),
		configured: len(normalized) > 0,
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next draws a fresh identity.
//
// Returns ErrProxiesExhausted when the pool was configured with proxies and
// all of them have been evicted.
func (p *Pool) Next() (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := Identity{UserAgent: p.agents[p.intn(len(p.agents))]}
	if !p.configured {
		return id, nil
	}
	if len(p.proxies) == 0 {
		return Identity{}, ErrProxiesExhausted
	}
	id.Proxy = p.proxies[p.intn(len(p.proxies))]
	return id, nil
}

// Evict removes proxy from the pool for the rest of the run. It reports
// whether the proxy was still in the pool.
func (p *Pool) Evict(proxy string) bool {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, candidate := range p.proxies {
		if candidate == proxy {
			p.proxies = append(p.proxies[:i:i], p.proxies[i+1:]...)
			p.evicted[proxy] = true
			return true
		}
	}
	return false
}

// Remaining returns the number of proxies still usable.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Exhausted reports whether a proxied pool has run out of proxies.
func (p *Pool) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured && len(p.proxies) == 0
}

// Evicted reports whether proxy was evicted during this run.
func (p *Pool) Evicted(proxy string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evicted[proxy]
}

func normalizeProxyList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

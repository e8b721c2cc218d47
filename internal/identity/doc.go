// Package identity supplies per-attempt request identities: a randomized
// User-Agent and, when proxies are configured, a randomly chosen proxy.
//
// A proxy implicated in a failure is evicted for the rest of the run. Once a
// pool that started with proxies runs dry, Next returns ErrProxiesExhausted
// and the run must stop.
//
//	pool := identity.NewPool([]string{"http://10.0.0.1:8080", "http://10.0.0.2:8080"})
//	id, err := pool.Next()
//	if err != nil {
//	    return err // fatal
//	}
//	// ... request fails through id.Proxy
//	pool.Evict(id.Proxy)
package identity

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	ioutils "github.com/handiism/neko-downloader/internal/io"
)

// CookieJar is the process-wide name → value cookie store shared by all
// workers.
//
// Cookies are replayed on every request regardless of host, updated after
// every successful response and persisted once at the end of a run.
type CookieJar struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCookieJar creates an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{values: make(map[string]string)}
}

// LoadCookieJar reads a jar saved with Save. A missing file yields an empty jar.
func LoadCookieJar(path string) (*CookieJar, error) {
	jar := NewCookieJar()
	data, err := ioutils.ReadFileIfExists(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return jar, nil
	}
	if err := json.Unmarshal(data, &jar.values); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", path, err)
	}
	if jar.values == nil {
		jar.values = make(map[string]string)
	}
	return jar, nil
}

// Save writes the jar to path as a JSON object.
func (j *CookieJar) Save(path string) error {
	j.mu.RLock()
	data, err := json.MarshalIndent(j.values, "", "  ")
	j.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	return ioutils.WriteFileAtomic(path, data)
}

// Snapshot returns a copy of the current cookies.
func (j *CookieJar) Snapshot() map[string]string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make(map[string]string, len(j.values))
	for k, v := range j.values {
		out[k] = v
	}
	return out
}

// Merge stores response cookies, overwriting existing values by name.
func (j *CookieJar) Merge(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		j.values[c.Name] = c.Value
	}
}

// Set stores a single cookie.
func (j *CookieJar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.values[name] = value
}

// Len returns the number of cookies held.
func (j *CookieJar) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.values)
}

// applyCookies adds every cookie to req in a stable order.
func applyCookies(req *http.Request, cookies map[string]string) {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: cookies[name]})
	}
}

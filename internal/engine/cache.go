// cache.go provides the in-process (L1) caches: token-resolved markup with
// a short TTL, and compiled Go templates keyed by a fingerprint of their
// source. A changed template part produces a new key, so neither cache is
// ever invalidated explicitly.
package engine

import (
	"html/template"
	"log/slog"
	"sync"
	"time"
)

// maxCacheEntries bounds both caches. When a put would exceed it, expired
// entries are dropped first and everything else when none had expired.
const maxCacheEntries = 1024

// renderKey identifies resolved markup for one template at one content
// fingerprint.
type renderKey struct {
	key         string
	fingerprint string
}

type renderEntry struct {
	markup  string
	expires time.Time
}

// renderCache is a concurrency-safe TTL map of token-resolved markup.
type renderCache struct {
	mu      sync.RWMutex
	entries map[renderKey]renderEntry
	now     func() time.Time
}

func newRenderCache() *renderCache {
	return &renderCache{
		entries: make(map[renderKey]renderEntry),
		now:     time.Now,
	}
}

// get returns cached markup. Expired entries count as misses.
func (c *renderCache) get(key, fingerprint string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[renderKey{key, fingerprint}]
	if !ok || !c.now().Before(e.expires) {
		return "", false
	}
	return e.markup, true
}

// put stores markup for ttl.
func (c *renderCache) put(key, fingerprint, markup string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= maxCacheEntries {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= maxCacheEntries {
			c.entries = make(map[renderKey]renderEntry)
		}
	}
	c.entries[renderKey{key, fingerprint}] = renderEntry{markup: markup, expires: now.Add(ttl)}
	slog.Debug("render cached", "key", key, "fingerprint", fingerprint, "size", len(c.entries))
}

// clear drops every entry.
func (c *renderCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[renderKey]renderEntry)
	slog.Debug("render cache fully cleared")
}

// templateCache is a concurrency-safe in-memory cache of compiled templates
// keyed by the fingerprint of their source text.
type templateCache struct {
	mu      sync.RWMutex
	entries map[string]*template.Template
}

func newTemplateCache() *templateCache {
	return &templateCache{
		entries: make(map[string]*template.Template),
	}
}

// get retrieves a compiled template from cache. Returns nil on miss.
func (c *templateCache) get(fingerprint string) *template.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[fingerprint]
}

// put stores a compiled template in the cache.
func (c *templateCache) put(fingerprint string, tmpl *template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCacheEntries {
		c.entries = make(map[string]*template.Template)
	}
	c.entries[fingerprint] = tmpl
}

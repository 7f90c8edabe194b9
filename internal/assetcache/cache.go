// Package assetcache pre-caches the web client's static files under a fixed
// cache name and serves them from that cache, falling back to the origin.
package assetcache

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sync/atomic"
	"time"

	"segmap/internal/metrics"
)

// Asset maps a request URL to a file in the origin filesystem.
type Asset struct {
	URL  string
	File string
}

// DefaultManifest is the fixed set of URLs installed into the cache.
var DefaultManifest = []Asset{
	{URL: "/", File: "index.html"},
	{URL: "/static/css/styles.css", File: "static/css/styles.css"},
	{URL: "/static/js/main.js", File: "static/js/main.js"},
	{URL: "/manifest.json", File: "manifest.json"},
}

type Cache struct {
	name      string
	manifest  []Asset
	origin    fs.FS
	store     Store
	ttl       time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	installed atomic.Bool
}

func New(name string, manifest []Asset, origin fs.FS, store Store, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		name:     name,
		manifest: manifest,
		origin:   origin,
		store:    store,
		ttl:      ttl,
		metrics:  m,
		logger:   logger.With("component", "asset_cache", "cache_name", name),
	}
}

// Install reads every manifest file and stores it. Nothing is stored unless
// every file could be read; a failed write removes what was already stored.
func (c *Cache) Install(ctx context.Context) error {
	start := time.Now()
	c.logger.Info("installing asset cache", "assets", len(c.manifest))

	entries := make(map[string][]byte, len(c.manifest))
	for _, a := range c.manifest {
		body, err := fs.ReadFile(c.origin, a.File)
		if err != nil {
			return fmt.Errorf("reading %s: %w", a.URL, err)
		}
		data, err := encodeEntry(entry{ContentType: contentType(a.File, body), Body: body})
		if err != nil {
			return fmt.Errorf("encoding %s: %w", a.URL, err)
		}
		entries[a.URL] = data
	}

	var stored []string
	for _, a := range c.manifest {
		key := entryKey(c.name, a.URL)
		if err := c.store.Set(ctx, key, entries[a.URL], c.ttl); err != nil {
			c.rollback(stored)
			return fmt.Errorf("storing %s: %w", a.URL, err)
		}
		stored = append(stored, key)
	}

	c.installed.Store(true)
	c.logger.Info("asset cache installed",
		"assets", len(stored),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Installed reports whether Install has completed successfully.
func (c *Cache) Installed() bool {
	return c.installed.Load()
}

// Handler serves GET and HEAD requests from the cache and passes everything
// else, including misses, to network.
func (c *Cache) Handler(network http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			network.ServeHTTP(w, r)
			return
		}

		e, ok := c.match(r.Context(), r.URL.Path)
		c.metrics.IncAssetLookup(ok)
		if !ok {
			network.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", e.ContentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(e.Body)
		}
	})
}

func (c *Cache) match(ctx context.Context, url string) (entry, bool) {
	data, err := c.store.Get(ctx, entryKey(c.name, url))
	if err != nil {
		c.logger.Warn("cache lookup failed", "url", url, "error", err)
		return entry{}, false
	}
	if data == nil {
		return entry{}, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("cache entry unreadable", "url", url, "error", err)
		return entry{}, false
	}
	return e, true
}

func (c *Cache) rollback(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			c.logger.Warn("rollback delete failed", "key", k, "error", err)
		}
	}
}

func contentType(file string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(file)); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}

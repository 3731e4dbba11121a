package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// AssetCacheName versions the asset cache. Bumping it makes Purge drop
// every older cache directory.
const AssetCacheName = "astral-cache-v1"

// PrecacheAssets are fetched and stored by Install
var PrecacheAssets = []string{
	"/",
	"/index.html",
	"/styles/index.css",
	"/styles/response-style.css",
	"/scripts/brain.js",
	"/scripts/apifree.min.js",
	"/img/icon-192.png",
	"/img/icon-512.png",
}

// AssetEntry describes one cached asset
type AssetEntry struct {
	Path        string    `yaml:"path"`
	ContentType string    `yaml:"content_type"`
	Size        int64     `yaml:"size"`
	CachedAt    time.Time `yaml:"cached_at"`
}

// AssetIndex is the YAML index kept next to the cached files
type AssetIndex struct {
	Name   string       `yaml:"name"`
	Assets []AssetEntry `yaml:"assets"`
}

func (idx *AssetIndex) find(p string) (AssetEntry, int) {
	for i, e := range idx.Assets {
		if e.Path == p {
			return e, i
		}
	}
	return AssetEntry{}, -1
}

// Asset is a fetched asset body
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
	FromCache   bool
}

// AssetCache serves the client's static files cache-first, falling back
// to the origin on a miss
type AssetCache struct {
	root   string
	name   string
	origin string
	client *http.Client

	mu sync.Mutex
}

// NewAssetCache creates a cache under <dataDir>/assets backed by origin.
// An empty origin disables the network fallback.
func NewAssetCache(dataDir, origin string) *AssetCache {
	return &AssetCache{
		root:   filepath.Join(dataDir, "assets"),
		name:   AssetCacheName,
		origin: strings.TrimRight(origin, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Dir returns the directory of the current cache version
func (c *AssetCache) Dir() string {
	return filepath.Join(c.root, c.name)
}

// IndexPath returns the path to the YAML index
func (c *AssetCache) IndexPath() string {
	return filepath.Join(c.Dir(), "index.yaml")
}

func (c *AssetCache) filePath(p string) string {
	rel := strings.TrimPrefix(p, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "_root"
	}
	return filepath.Join(c.Dir(), "files", filepath.FromSlash(rel))
}

// cleanAssetPath normalizes a request path so it cannot escape the cache dir
func cleanAssetPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// LoadIndex loads the asset index
func (c *AssetCache) LoadIndex() (*AssetIndex, error) {
	data, err := os.ReadFile(c.IndexPath())
	if err != nil {
		return nil, err
	}

	var index AssetIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

func (c *AssetCache) loadIndexOrEmpty() *AssetIndex {
	index, err := c.LoadIndex()
	if err != nil {
		return &AssetIndex{Name: c.name}
	}
	return index
}

// SaveIndex saves the asset index
func (c *AssetCache) SaveIndex(index *AssetIndex) error {
	if err := os.MkdirAll(c.Dir(), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(c.IndexPath(), data, 0644)
}

// Lookup returns a cached asset without touching the network
func (c *AssetCache) Lookup(p string) (*Asset, bool) {
	p = cleanAssetPath(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, i := c.loadIndexOrEmpty().find(p)
	if i < 0 {
		return nil, false
	}
	body, err := os.ReadFile(c.filePath(p))
	if err != nil {
		LogDebug("Asset %s indexed but unreadable: %v", p, err)
		return nil, false
	}
	return &Asset{Path: p, ContentType: entry.ContentType, Body: body, FromCache: true}, true
}

func (c *AssetCache) store(a *Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	file := c.filePath(a.Path)
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return &StorageError{Path: file, Op: "write", Err: err}
	}
	if err := os.WriteFile(file, a.Body, 0644); err != nil {
		return &StorageError{Path: file, Op: "write", Err: err}
	}

	index := c.loadIndexOrEmpty()
	entry := AssetEntry{
		Path:        a.Path,
		ContentType: a.ContentType,
		Size:        int64(len(a.Body)),
		CachedAt:    time.Now().UTC(),
	}
	if _, i := index.find(a.Path); i >= 0 {
		index.Assets[i] = entry
	} else {
		index.Assets = append(index.Assets, entry)
	}
	return c.SaveIndex(index)
}

func (c *AssetCache) fetchNetwork(ctx context.Context, p string) (*Asset, error) {
	if c.origin == "" {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, p)
	}

	url := c.origin + p
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &EndpointError{URL: url, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &EndpointError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EndpointError{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EndpointError{URL: url, Status: resp.StatusCode, Err: err}
	}
	return &Asset{Path: p, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// Install fetches and stores every precached asset. It fails if any
// single asset cannot be fetched.
func (c *AssetCache) Install(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, p := range PrecacheAssets {
		p := p
		g.Go(func() error {
			a, err := c.fetchNetwork(ctx, p)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", p, err)
			}
			return c.store(a)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	LogInfo("Installed %d assets into %s", len(PrecacheAssets), c.name)
	return nil
}

// Fetch returns the cached asset if present, otherwise the network copy.
// Network responses are not written back to the cache.
func (c *AssetCache) Fetch(ctx context.Context, p string) (*Asset, error) {
	p = cleanAssetPath(p)
	if a, ok := c.Lookup(p); ok {
		return a, nil
	}
	return c.fetchNetwork(ctx, p)
}

// Purge removes cache directories left behind by older versions
func (c *AssetCache) Purge() error {
	entries, err := os.ReadDir(c.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == c.name {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return &StorageError{Path: e.Name(), Op: "write", Err: err}
		}
		LogDebug("Purged asset cache %s", e.Name())
	}
	return nil
}

// Handler serves GET and HEAD requests through Fetch
func (c *AssetCache) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		a, err := c.Fetch(r.Context(), r.URL.Path)
		if err != nil {
			var endpointErr *EndpointError
			switch {
			case errors.Is(err, ErrAssetNotFound):
				http.NotFound(w, r)
			case errors.As(err, &endpointErr) && endpointErr.Status != 0:
				w.WriteHeader(endpointErr.Status)
			default:
				LogWarn("Asset fetch failed for %s: %v", r.URL.Path, err)
				w.WriteHeader(http.StatusBadGateway)
			}
			return
		}

		if a.ContentType != "" {
			w.Header().Set("Content-Type", a.ContentType)
		}
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(a.Body)
	})
}

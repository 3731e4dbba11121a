package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ropdawg/astral/testutil"
)

type originServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newOriginServer(t *testing.T) *originServer {
	t.Helper()
	o := &originServer{hits: make(map[string]int)}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.URL.Path]++
		o.mu.Unlock()

		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("body of " + r.URL.Path))
	}))
	t.Cleanup(o.Close)
	return o
}

func (o *originServer) count(p string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[p]
}

func TestAssetCache_InstallThenCacheHit(t *testing.T) {
	origin := newOriginServer(t)
	cache := NewAssetCache(testutil.CreateTempDir(t), origin.URL)

	if err := cache.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	index, err := cache.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Assets) != len(PrecacheAssets) {
		t.Errorf("indexed assets = %d, want %d", len(index.Assets), len(PrecacheAssets))
	}

	a, err := cache.Fetch(context.Background(), "/styles/index.css")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !a.FromCache {
		t.Error("Fetch() of a precached asset went to the network")
	}
	if string(a.Body) != "body of /styles/index.css" {
		t.Errorf("Body = %q", a.Body)
	}
	if got := origin.count("/styles/index.css"); got != 1 {
		t.Errorf("origin hits = %d, want 1 (install only)", got)
	}

	root, ok := cache.Lookup("")
	if !ok || string(root.Body) != "body of /" {
		t.Errorf("Lookup(root) = %v, %v", root, ok)
	}
}

func TestAssetCache_MissFallsThroughWithoutStoring(t *testing.T) {
	origin := newOriginServer(t)
	cache := NewAssetCache(testutil.CreateTempDir(t), origin.URL)

	for i := 0; i < 2; i++ {
		a, err := cache.Fetch(context.Background(), "/manifest.json")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if a.FromCache {
			t.Error("Fetch() of an unlisted asset came from the cache")
		}
	}
	if got := origin.count("/manifest.json"); got != 2 {
		t.Errorf("origin hits = %d, want 2", got)
	}
	if _, ok := cache.Lookup("/manifest.json"); ok {
		t.Error("network response was written back to the cache")
	}
}

func TestAssetCache_Errors(t *testing.T) {
	origin := newOriginServer(t)

	t.Run("origin 404", func(t *testing.T) {
		cache := NewAssetCache(testutil.CreateTempDir(t), origin.URL)
		_, err := cache.Fetch(context.Background(), "/missing")
		var endpointErr *EndpointError
		if !errors.As(err, &endpointErr) || endpointErr.Status != http.StatusNotFound {
			t.Errorf("Fetch() error = %v, want 404 EndpointError", err)
		}
	})

	t.Run("no origin", func(t *testing.T) {
		cache := NewAssetCache(testutil.CreateTempDir(t), "")
		_, err := cache.Fetch(context.Background(), "/index.html")
		if !errors.Is(err, ErrAssetNotFound) {
			t.Errorf("Fetch() error = %v, want ErrAssetNotFound", err)
		}
	})

	t.Run("install fails on any missing asset", func(t *testing.T) {
		cache := NewAssetCache(testutil.CreateTempDir(t), "")
		if err := cache.Install(context.Background()); err == nil {
			t.Error("Install() error = nil without an origin")
		}
	})
}

func TestCleanAssetPath(t *testing.T) {
	tests := map[string]string{
		"":                  "/",
		"/":                 "/",
		"index.html":        "/index.html",
		"/../../etc/passwd": "/etc/passwd",
		"/img/":             "/img/",
	}
	for in, want := range tests {
		if got := cleanAssetPath(in); got != want {
			t.Errorf("cleanAssetPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssetCache_Purge(t *testing.T) {
	dataDir := testutil.CreateTempDir(t)
	cache := NewAssetCache(dataDir, "")

	old := filepath.Join(dataDir, "assets", "astral-cache-v0")
	if err := os.MkdirAll(old, 0755); err != nil {
		t.Fatal(err)
	}
	if err := cache.SaveIndex(&AssetIndex{Name: AssetCacheName}); err != nil {
		t.Fatal(err)
	}

	if err := cache.Purge(); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("old cache still present: %v", err)
	}
	if _, err := os.Stat(cache.IndexPath()); err != nil {
		t.Errorf("current cache removed: %v", err)
	}
}

func TestAssetCache_Handler(t *testing.T) {
	origin := newOriginServer(t)
	cache := NewAssetCache(testutil.CreateTempDir(t), origin.URL)
	h := cache.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scripts/brain.js", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "body of /scripts/brain.js" {
		t.Errorf("GET = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

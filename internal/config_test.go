package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ropdawg/astral/testutil"
)

func TestLoadConfig_File(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "config.yaml")
	content := `endpoint: https://astral.example.com
backend: sqlite
type_delay: 10ms
voice:
  enabled: true
  rate: 1.5
server:
  allowed_origins:
    - http://localhost:5500
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Endpoint != "https://astral.example.com" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.TypeDelay != 10*time.Millisecond {
		t.Errorf("TypeDelay = %v", cfg.TypeDelay)
	}
	if !cfg.Voice.Enabled || cfg.Voice.Rate != 1.5 {
		t.Errorf("Voice = %+v", cfg.Voice)
	}
	if cfg.Voice.Pitch != 1 || cfg.Voice.Volume != 1 {
		t.Errorf("unset voice options lost their defaults: %+v", cfg.Voice)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:5500" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model default lost: %q", cfg.Server.Model)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	t.Run("explicit missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		var storageErr *StorageError
		if !errors.As(err, &storageErr) {
			t.Errorf("LoadConfig() error = %v, want *StorageError", err)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		_ = os.WriteFile(path, []byte("endpoint: [unterminated"), 0644)
		_, err := LoadConfig(path)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("LoadConfig() error = %v, want *ParseError", err)
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		path := filepath.Join(dir, "backend.yaml")
		_ = os.WriteFile(path, []byte("backend: redis\n"), 0644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig() error = nil, want invalid backend error")
		}
	})
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"ASTRAL_ENDPOINT": "http://10.0.0.2:8000",
		"ASTRAL_DATA_DIR": "/tmp/astral",
		"ASTRAL_BACKEND":  "sqlite",
		"PORT":            "9090",
		"GROQ_API_KEY":    "test-key",
		"BING_API_KEY":    "bing-key",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Endpoint != env["ASTRAL_ENDPOINT"] {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.DataDir != "/tmp/astral" || cfg.Backend != "sqlite" {
		t.Errorf("DataDir/Backend = %q/%q", cfg.DataDir, cfg.Backend)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.APIKey != "test-key" || cfg.Server.BingAPIKey != "bing-key" {
		t.Errorf("secrets not applied: %+v", cfg.Server)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Endpoint = "http://example.test"
	cfg.Server.APIKey = "secret"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Error("Save() wrote the API key to disk")
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Endpoint != "http://example.test" {
		t.Errorf("Endpoint = %q", loaded.Endpoint)
	}
}

package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	// Test that the command exists and can be called
	resetFlags(rootCmd)
	rootCmd.SetArgs([]string{"healthcheck", "--help"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("healthcheck command failed: %v", err)
	}

	output := buf.String()
	if output == "" {
		t.Error("healthcheck --help should produce output")
	}
}

func TestHealthcheckVerboseFlag(t *testing.T) {
	if healthcheckCmd.Flag("verbose") == nil {
		t.Error("healthcheck command should have --verbose flag")
	}
	if healthcheckCmd.Flags().ShorthandLookup("v") == nil {
		t.Error("healthcheck command should have -v flag")
	}
}

func TestHealthcheckRun(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer healthy.Close()

	tests := []struct {
		name     string
		endpoint string
		backend  string
		contains string
	}{
		{name: "endpoint up", endpoint: healthy.URL, backend: "file", contains: "Health check passed"},
		{name: "endpoint down", endpoint: unreachableEndpoint, backend: "file", contains: "endpoint offline"},
		{name: "sqlite backend", endpoint: healthy.URL, backend: "sqlite", contains: "Health check passed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, t.TempDir(), "--endpoint", tt.endpoint, "--backend", tt.backend, "healthcheck")
			if err != nil {
				t.Fatalf("healthcheck error = %v\n%s", err, out)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestHealthcheckUnwritableDataDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, base, "--data-dir", filepath.Join(blocker, "data"), "healthcheck")
	if err == nil {
		t.Fatalf("expected failure, output:\n%s", out)
	}
}

func TestHealthcheckVerboseListsKeys(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir)

	out, err := runCLI(t, dir, "healthcheck", "-v")
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Keys: activeChat, chatHistory, healthcheck") {
		t.Errorf("output missing stored keys:\n%s", out)
	}
}

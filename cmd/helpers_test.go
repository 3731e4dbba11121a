package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// unreachableEndpoint refuses connections so sends fall back locally
const unreachableEndpoint = "http://127.0.0.1:1"

// resetFlags restores every flag to its default between Execute calls
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command against dir with an empty config file
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	for _, key := range []string{"ASTRAL_ENDPOINT", "ASTRAL_DATA_DIR", "ASTRAL_BACKEND", "GROQ_API_KEY", "BING_API_KEY", "PORT"} {
		t.Setenv(key, "")
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte("{}\n"), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
	}

	base := []string{"--config", configFile, "--data-dir", dir, "--endpoint", unreachableEndpoint}
	var out bytes.Buffer
	rootCmd.SetArgs(append(base, args...))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	err := rootCmd.Execute()
	return out.String(), err
}

// seedStore writes two sessions, "a" active, into dir
func seedStore(t *testing.T, dir string) {
	t.Helper()
	p := internal.NewPersistence(internal.NewFileBackend(dir))
	p.Save(internal.Collection{
		{
			ID:    "a",
			Title: "Feeling stuck",
			Messages: []internal.Message{
				{HumanText: "I feel stuck today", AIText: "Let's take one small step."},
				{HumanText: "ok", AIText: "Good. What is the smallest task?"},
			},
		},
		{ID: "b", Title: internal.DefaultSessionTitle, Messages: []internal.Message{}},
	})
	p.SaveActiveID("a")
}

// loadStore reads back what the commands persisted in dir
func loadStore(t *testing.T, dir string) *internal.SessionStore {
	t.Helper()
	store := internal.NewSessionStore(internal.NewPersistence(internal.NewFileBackend(dir)))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckVerbose bool
)

// healthProbeKey is written and read back to prove the backend works
const healthProbeKey = "healthcheck"

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that astral can store history and reach its endpoint",
	Long: `Check the health of astral by verifying:
  • The data directory is writable
  • The history backend can write and read back a value
  • The chat endpoint answers /health
  • A text-to-speech engine and the speech input command are available

Only the first two are required; the others are reported as warnings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("Astral Health Check"))
		fmt.Fprintln(out)

		// Step 1: data directory
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking data directory..."))
		dirErr := checkDataDir(cfg.DataDir)
		if dirErr != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ Data directory not writable:"), dirErr)
		} else {
			fmt.Fprintln(out, successStyle.Render("✓ Data directory writable"))
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Path: %s\n", cfg.DataDir)
		}
		fmt.Fprintln(out)

		// Step 2: persistence round trip
		fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Step 2: Testing %s backend...", cfg.Backend)))
		sessions, keys, storeErr := checkBackend(cfg.Backend, cfg.DataDir)
		if storeErr != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ History backend failed:"), storeErr)
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ History backend working (%d session(s) stored)", sessions)))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Keys: %s\n", strings.Join(keys, ", "))
			}
		}
		fmt.Fprintln(out)

		// Step 3: endpoint
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting chat endpoint..."))
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		endpointErr := internal.NewHTTPChatClient(cfg.Endpoint).Health(ctx)
		cancel()
		if endpointErr != nil {
			fmt.Fprintln(out, warningStyle.Render("! Chat endpoint unreachable, replies will be local"))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   %v\n", endpointErr)
			}
		} else {
			fmt.Fprintln(out, successStyle.Render("✓ Chat endpoint healthy"))
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Endpoint: %s\n", cfg.Endpoint)
		}
		fmt.Fprintln(out)

		// Step 4: speech
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking speech engines..."))
		reportSpeech(out)
		fmt.Fprintln(out)

		fmt.Fprintln(out, sectionStyle.Render("Summary"))
		fmt.Fprintln(out)
		if dirErr != nil || storeErr != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ Health check failed"))
			return fmt.Errorf("health check failed: history cannot be stored")
		}
		if endpointErr != nil {
			fmt.Fprintln(out, warningStyle.Render("! Storage works, endpoint offline"))
			return nil
		}
		fmt.Fprintln(out, successStyle.Render("✓ Health check passed!"))
		return nil
	},
}

func checkDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &internal.StorageError{Path: dir, Op: "open", Err: err}
	}
	f, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return &internal.StorageError{Path: dir, Op: "write", Err: err}
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// checkBackend writes a probe value, reads it back, counts stored sessions
// and lists the stored keys
func checkBackend(kind, dir string) (int, []string, error) {
	backend, err := internal.OpenBackend(kind, dir)
	if err != nil {
		return 0, nil, err
	}
	defer backend.Close()

	probe := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := backend.Put(healthProbeKey, probe); err != nil {
		return 0, nil, err
	}
	got, err := backend.Get(healthProbeKey)
	if err != nil {
		return 0, nil, err
	}
	if !bytes.Equal(got, probe) {
		return 0, nil, fmt.Errorf("read back %q, wrote %q", got, probe)
	}

	var keys []string
	if lister, ok := backend.(internal.KeyLister); ok {
		if keys, err = lister.Keys(); err != nil {
			return 0, nil, err
		}
	}
	return len(internal.NewPersistence(backend).Load()), keys, nil
}

func reportSpeech(out io.Writer) {
	tts := cfg.Voice.Command
	if tts == "" {
		selected, err := internal.SelectSpeechCommand(runtime.GOOS, exec.LookPath)
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render("! No text-to-speech engine found, voice replies disabled"))
		}
		tts = selected
	}
	if tts != "" {
		fmt.Fprintln(out, successStyle.Render("✓ Text-to-speech: "+tts))
	}

	recognizer := newRecognizer()
	switch r := recognizer.(type) {
	case nil:
		fmt.Fprintln(out, warningStyle.Render("! "+internal.SpeechUnsupportedNotice))
	case *internal.CommandRecognizer:
		if r.Available() {
			fmt.Fprintln(out, successStyle.Render("✓ Speech input: "+r.Command))
		} else {
			fmt.Fprintln(out, warningStyle.Render("! Speech input command not found: "+r.Command))
		}
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}

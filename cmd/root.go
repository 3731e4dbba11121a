package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	configPath  string
	dataDir     string
	backendKind string
	endpoint    string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	// cfg is loaded once per invocation by the root PersistentPreRunE
	cfg *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "astral",
	Short: "Talk to Astral from your terminal",
	Long: `astral is a terminal client for the Astral support chat.

Conversations are kept as sessions on disk. Each message you send is
answered by the Astral chat endpoint, or by a short local reply when the
endpoint cannot be reached.

Quick Start:
  astral chat                     # Open the chat window
  astral send "I can't focus"     # Send one message to the active session
  astral list                     # List sessions
  astral serve                    # Run the chat endpoint (needs GROQ_API_KEY)`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}
		if backendKind != "" {
			loaded.Backend = backendKind
		}
		if endpoint != "" {
			loaded.Endpoint = endpoint
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer internal.SyncLogger()
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// openStore opens the configured backend and loads the session store
func openStore() (*internal.SessionStore, error) {
	backend, err := internal.OpenBackend(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	return internal.NewSessionStore(internal.NewPersistence(backend)), nil
}

// newSpeaker builds the reply voice from config; enabled toggles playback
func newSpeaker(enabled bool) *internal.VoiceSpeaker {
	return internal.NewVoiceSpeaker(enabled, cfg.Voice.Command, cfg.Voice.SpeechOptions)
}

// newRecognizer returns nil when no speech-to-text command is configured
func newRecognizer() internal.Recognizer {
	if cfg.Speech.Command == "" {
		return nil
	}
	return internal.NewCommandRecognizer(cfg.Speech.Command)
}

func typeDelay() time.Duration {
	if cfg.TypeDelay <= 0 {
		return internal.DefaultTypeDelay
	}
	return cfg.TypeDelay
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the user config dir astral/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding chat history (default ~/.astral)")
	rootCmd.PersistentFlags().StringVar(&backendKind, "backend", "", "History backend: file or sqlite")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Chat endpoint base URL")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

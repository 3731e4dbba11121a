package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
)

var configForce bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the astral config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the config file",
	Long: `Write the effective settings (defaults, config file, environment and
flags merged) to the config file so they can be edited.

API keys are never written; they are read from GROQ_API_KEY and
BING_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = internal.DefaultConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &internal.StorageError{Path: path, Op: "read", Err: err}
		}

		if err := cfg.Save(path); err != nil {
			return &internal.StorageError{Path: path, Op: "write", Err: err}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}

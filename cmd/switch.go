package cmd

import (
	"fmt"

	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
)

// switchCmd represents the switch command
var switchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make a session active",
	Long: `Make the session with the given id active. Sends and the chat window
use the active session. An unknown id leaves the active session unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if !store.Switch(args[0]) {
			internal.LogInfo("No session %s, keeping the active one", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active session: %s\n", store.ActiveID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(switchCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Long: `Delete a session and its messages. When the active session is deleted
the first remaining session becomes active, or a new one is started.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if !store.Delete(args[0]) {
			return fmt.Errorf("session not found: %s (use 'astral list' to see available sessions)", args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted session %s\n", args[0])
		fmt.Fprintf(out, "Active session: %s\n", store.ActiveID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <title...>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(strings.Join(args[1:], " "))
		if title == "" {
			return fmt.Errorf("title must not be empty")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if !store.Rename(args[0], title) {
			return fmt.Errorf("session not found: %s (use 'astral list' to see available sessions)", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new chat session",
	Long:  `Create an empty session at the top of the list and make it active.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		session := store.Create()
		fmt.Fprintf(cmd.OutOrStdout(), "Created session %s\n", idStyle.Render(session.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}

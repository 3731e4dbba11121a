package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ropdawg/astral/internal"
	"github.com/ropdawg/astral/internal/ui"
	"github.com/spf13/cobra"
)

var (
	limit    int
	showHTML bool
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	moreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

const showWidth = 80

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the messages of a session",
	Long: `Display the messages of a session, the active one by default.
Use --html to print the transcript markup instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id := store.ActiveID()
		if len(args) == 1 {
			id = args[0]
		}
		session, ok := store.Find(id)
		if !ok {
			return fmt.Errorf("session not found: %s (use 'astral list' to see available sessions)", id)
		}

		messages := session.Messages
		remaining := 0
		if limit > 0 && len(messages) > limit {
			remaining = len(messages) - limit
			messages = messages[:limit]
		}

		out := cmd.OutOrStdout()
		if showHTML {
			fmt.Fprintln(out, internal.RenderHTML(messages))
			return nil
		}

		displaySessionHeader(out, session)
		fmt.Fprintln(out, ui.RenderTranscript(messages, showWidth))
		if remaining > 0 {
			fmt.Fprintln(out, moreStyle.Render(fmt.Sprintf("... (%d more message(s))", remaining)))
		}
		return nil
	},
}

func displaySessionHeader(out io.Writer, session *internal.Session) {
	if session == nil {
		return
	}
	fmt.Fprintln(out, sessionHeaderStyle.Render(session.Title))

	metaParts := []string{
		fmt.Sprintf("ID: %s", session.ID),
		fmt.Sprintf("Messages: %d", len(session.Messages)),
	}
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Print the transcript as HTML markup")
}

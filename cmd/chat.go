package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ropdawg/astral/internal"
	"github.com/ropdawg/astral/internal/ui"
	"github.com/spf13/cobra"
)

var (
	chatPlain bool
	chatVoice bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat window",
	Long: `Open an interactive chat on the active session.

The window lists sessions on the left (tab to focus, enter to switch) and
the conversation on the right. Use --plain, or pipe the output, for a
line-by-line prompt instead; type exit or quit to leave it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		voice := chatVoice || cfg.Voice.Enabled
		client := internal.NewHTTPChatClient(cfg.Endpoint)

		if chatPlain || !internal.IsTerminal(cmd.OutOrStdout()) {
			dispatcher := internal.NewDispatcher(store, client, newSpeaker(voice))
			tw := internal.NewTypewriter(typeDelay())
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), dispatcher, tw)
		}

		// The model decides when to speak, so the speaker itself stays on.
		dispatcher := internal.NewDispatcher(store, client, newSpeaker(true))
		model := ui.NewModel(ui.Options{
			Store:      store,
			Dispatcher: dispatcher,
			Recognizer: newRecognizer(),
			TypeDelay:  typeDelay(),
			Voice:      voice,
			Ctx:        cmd.Context(),
		})

		restore := logToFile(filepath.Join(cfg.DataDir, "astral.log"))
		defer restore()

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("chat window failed: %w", err)
		}
		return nil
	},
}

// logToFile moves log output off the terminal while the chat window owns it
func logToFile(path string) (restore func()) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }
	}
	internal.SetLogOutput(f)
	return func() {
		internal.SetLogOutput(os.Stderr)
		_ = f.Close()
	}
}

// runREPL reads one message per line until exit, quit or end of input.
// Ctrl+C while a reply is pending cancels that reply only. Replies are
// typed out by tw when it is set.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, d *internal.Dispatcher, tw *internal.Typewriter) error {
	fmt.Fprintln(out, "Astral is listening. Type exit or quit to leave.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		result, err := d.Send(sendCtx, line)
		stop()
		if err != nil {
			return err
		}
		if tw != nil && result.State == internal.StateFulfilled {
			typeResult(ctx, out, tw, result)
		} else {
			printResult(out, result)
		}

		if err := d.Speak(ctx, result); err != nil {
			internal.LogWarn("Voice playback failed: %v", err)
		}
	}
}

// typeResult prints the reply one character at a time
func typeResult(ctx context.Context, out io.Writer, tw *internal.Typewriter, r internal.Result) {
	fmt.Fprint(out, replyLabelStyle.Render("Astral:")+" ")
	shown := ""
	if !tw.Reveal(ctx, r.Message.AIText, func(chunk, revealed string) {
		fmt.Fprint(out, chunk)
		shown = revealed
	}) {
		// interrupted; print the rest at once
		fmt.Fprint(out, strings.TrimPrefix(r.Message.AIText, shown))
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Use a plain line prompt instead of the chat window")
	chatCmd.Flags().BoolVar(&chatVoice, "voice", false, "Speak replies aloud")
}

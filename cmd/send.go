package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ropdawg/astral/internal"
	"github.com/spf13/cobra"
)

var (
	sendVoice  bool
	sendListen bool
)

var replyLabelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("177")).
	Bold(true)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <text...>",
	Short: "Send one message to the active session",
	Long: `Send one message to the active session and print the reply.

Press Ctrl+C while waiting to cancel; the message is kept with a
[Cancelled] reply. When the endpoint cannot be reached a short local
reply is stored instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		text := strings.Join(args, " ")
		if sendListen {
			heard, err := listenOnce(ctx)
			if errors.Is(err, internal.ErrSpeechUnsupported) {
				internal.PrintWarning(internal.SpeechUnsupportedNotice)
				return nil
			}
			if err != nil {
				return err
			}
			text = heard
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("nothing to send: %w", internal.ErrEmptyInput)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		dispatcher := internal.NewDispatcher(store,
			internal.NewHTTPChatClient(cfg.Endpoint),
			newSpeaker(sendVoice || cfg.Voice.Enabled))

		result, err := sendOnce(ctx, dispatcher, text)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)

		if err := dispatcher.Speak(context.WithoutCancel(ctx), result); err != nil {
			internal.LogWarn("Voice playback failed: %v", err)
		}
		return nil
	},
}

func listenOnce(ctx context.Context) (string, error) {
	recognizer := newRecognizer()
	if recognizer == nil {
		return "", internal.ErrSpeechUnsupported
	}
	var heard string
	err := internal.ShowProgress(ctx, "Listening...", func() error {
		var listenErr error
		heard, listenErr = recognizer.Listen(ctx)
		return listenErr
	})
	return heard, err
}

// sendOnce runs one round trip behind a spinner. The spinner is not tied to
// ctx so a cancelled send still waits for the message to be finalized.
func sendOnce(ctx context.Context, d *internal.Dispatcher, text string) (internal.Result, error) {
	var result internal.Result
	err := internal.ShowProgress(context.Background(), "Astral is thinking...", func() error {
		var sendErr error
		result, sendErr = d.Send(ctx, text)
		return sendErr
	})
	return result, err
}

func printResult(out io.Writer, r internal.Result) {
	switch r.State {
	case internal.StateCancelled:
		internal.PrintWarning("Send cancelled")
	case internal.StateFailed:
		internal.LogWarn("Chat endpoint unavailable: %v", r.Err)
	}
	fmt.Fprintln(out, replyLabelStyle.Render("Astral:")+" "+r.Message.AIText)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendVoice, "voice", false, "Speak the reply aloud")
	sendCmd.Flags().BoolVar(&sendListen, "listen", false, "Take the message from the microphone instead of arguments")
}

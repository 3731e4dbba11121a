package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ropdawg/astral/internal"
)

// Reveal marks a message whose reply is still being typed out
type Reveal struct {
	Index int
	Runes int
}

// RenderOptions controls the transient parts of a transcript
type RenderOptions struct {
	// ThinkingFrame selects which indicator letter is lit
	ThinkingFrame int
	// Reveal, when set, shows only a prefix of that message's reply
	Reveal *Reveal
}

// Transcript renders messages for the terminal. Finished replies are
// rendered as markdown once per width and cached. The cache holds only the
// replies of the last Render call.
type Transcript struct {
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
	used     map[string]string
}

// NewTranscript creates a transcript renderer for the given width
func NewTranscript(width int) *Transcript {
	t := &Transcript{}
	t.SetWidth(width)
	return t
}

// SetWidth changes the wrap width, dropping cached renders
func (t *Transcript) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == t.width && t.cache != nil {
		return
	}
	t.width = width
	t.cache = make(map[string]string)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		internal.LogDebug("Markdown renderer unavailable: %v", err)
		t.renderer = nil
		return
	}
	t.renderer = r
}

// RenderTranscript projects messages to styled terminal text
func RenderTranscript(messages []internal.Message, width int) string {
	return NewTranscript(width).Render(messages, RenderOptions{})
}

// Render projects messages to styled terminal text
func (t *Transcript) Render(messages []internal.Message, opts RenderOptions) string {
	if len(messages) == 0 {
		return thinkingDimStyle.Render("Say anything. Astral is listening.")
	}

	t.used = make(map[string]string, len(messages))
	defer func() {
		t.cache, t.used = t.used, nil
	}()

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		if msg.HumanText != "" {
			b.WriteString(humanLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(humanTextStyle.Width(t.width).Render(msg.HumanText))
			b.WriteString("\n")
		}

		b.WriteString(aiLabelStyle.Render("Astral"))
		b.WriteString("\n")
		switch {
		case msg.Thinking:
			b.WriteString("  " + ThinkingIndicator(opts.ThinkingFrame))
		case opts.Reveal != nil && opts.Reveal.Index == i:
			b.WriteString(aiTextStyle.Width(t.width).Render(internal.Frame(msg.AIText, opts.Reveal.Runes)))
		default:
			b.WriteString(t.markdown(msg.AIText))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Transcript) markdown(text string) string {
	if out, ok := t.used[text]; ok {
		return out
	}
	if out, ok := t.cache[text]; ok {
		t.used[text] = out
		return out
	}
	out := ""
	if t.renderer != nil {
		if rendered, err := t.renderer.Render(text); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	if out == "" {
		out = aiTextStyle.Width(t.width).Render(text)
	}
	t.used[text] = out
	return out
}

// ThinkingIndicator spells ASTRAL with one letter lit per frame
func ThinkingIndicator(frame int) string {
	letters := []rune(internal.ThinkingLabel)
	lit := frame % len(letters)
	if lit < 0 {
		lit += len(letters)
	}

	parts := make([]string, len(letters))
	for i, r := range letters {
		if i == lit {
			parts[i] = thinkingLitStyle.Render(string(r))
		} else {
			parts[i] = thinkingDimStyle.Render(string(r))
		}
	}
	return strings.Join(parts, " ")
}

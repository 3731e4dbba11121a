package internal

import (
	"strings"
)

// ThinkingLabel is spelled out letter by letter while a reply is pending
const ThinkingLabel = "ASTRAL"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five characters that matter in markup text and attributes
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// RenderHTML projects messages into chat markup. It holds no state: the same
// messages always produce the same markup. The trailing chat-end anchor is
// what a display surface scrolls into view after drawing.
func RenderHTML(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(`<div class="chatlog">`)
		b.WriteString("\n")

		if msg.HumanText != "" {
			b.WriteString(`  <div class="human-response">`)
			b.WriteString("\n")
			b.WriteString(`    <p class="text">`)
			b.WriteString(EscapeHTML(msg.HumanText))
			b.WriteString("</p>\n")
			b.WriteString("  </div>\n")
		}

		b.WriteString(`  <div class="ai-response">`)
		b.WriteString("\n")
		if msg.Thinking {
			b.WriteString(thinkingIndicatorHTML())
		}
		b.WriteString(`    <p class="text">`)
		b.WriteString(EscapeHTML(msg.AIText))
		b.WriteString("</p>\n")
		b.WriteString("  </div>\n")

		b.WriteString("</div>\n")
	}
	b.WriteString(`<div id="chat-end"></div>`)
	b.WriteString("\n")
	return b.String()
}

func thinkingIndicatorHTML() string {
	var b strings.Builder
	b.WriteString(`    <div class="thinking">`)
	for _, r := range ThinkingLabel {
		b.WriteString("<span>")
		b.WriteRune(r)
		b.WriteString("</span>")
	}
	b.WriteString("</div>\n")
	return b.String()
}

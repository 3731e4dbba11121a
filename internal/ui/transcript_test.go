package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/ropdawg/astral/internal"
)

func TestThinkingIndicator(t *testing.T) {
	for frame := 0; frame < 8; frame++ {
		if got := ansi.Strip(ThinkingIndicator(frame)); got != "A S T R A L" {
			t.Errorf("ThinkingIndicator(%d) = %q, want %q", frame, got, "A S T R A L")
		}
	}
	if got := ansi.Strip(ThinkingIndicator(-1)); got != "A S T R A L" {
		t.Errorf("ThinkingIndicator(-1) = %q", got)
	}
}

func TestTranscriptRender(t *testing.T) {
	tests := []struct {
		name     string
		messages []internal.Message
		opts     RenderOptions
		contains []string
		excludes []string
	}{
		{
			name:     "empty",
			contains: []string{"Astral is listening"},
		},
		{
			name:     "thinking",
			messages: []internal.Message{{HumanText: "are you there", Thinking: true}},
			contains: []string{"You", "are you there", "Astral", "A S T R A L"},
		},
		{
			name:     "finished reply as markdown",
			messages: []internal.Message{{HumanText: "hi", AIText: "**bold** reply"}},
			contains: []string{"bold", "reply"},
			excludes: []string{"**", "A S T R A L"},
		},
		{
			name:     "reply without human text",
			messages: []internal.Message{{AIText: "welcome back"}},
			contains: []string{"Astral", "welcome back"},
			excludes: []string{"You"},
		},
		{
			name:     "reveal shows a prefix",
			messages: []internal.Message{{HumanText: "greet", AIText: "hello world"}},
			opts:     RenderOptions{Reveal: &Reveal{Index: 0, Runes: 3}},
			contains: []string{"hel"},
			excludes: []string{"hello world"},
		},
		{
			name: "reveal applies only to its index",
			messages: []internal.Message{
				{HumanText: "one", AIText: "first answer"},
				{HumanText: "two", AIText: "second answer"},
			},
			opts:     RenderOptions{Reveal: &Reveal{Index: 1, Runes: 2}},
			contains: []string{"first answer", "se"},
			excludes: []string{"second answer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ansi.Strip(NewTranscript(80).Render(tt.messages, tt.opts))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() missing %q in:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Render() should not contain %q in:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestTranscriptCachesPerWidth(t *testing.T) {
	tr := NewTranscript(60)
	msgs := []internal.Message{{HumanText: "hi", AIText: "cached reply"}}

	tr.Render(msgs, RenderOptions{})
	if _, ok := tr.cache["cached reply"]; !ok {
		t.Fatal("expected reply to be cached after render")
	}

	tr.SetWidth(60)
	if len(tr.cache) != 1 {
		t.Errorf("same width should keep cache, got %d entries", len(tr.cache))
	}

	tr.SetWidth(100)
	if len(tr.cache) != 0 {
		t.Errorf("new width should drop cache, got %d entries", len(tr.cache))
	}
}

func TestTranscriptCacheHoldsLastRenderOnly(t *testing.T) {
	tr := NewTranscript(60)
	first := []internal.Message{{AIText: "one"}, {AIText: "two"}, {AIText: "three"}}
	second := []internal.Message{{AIText: "three"}, {AIText: "four"}}

	tr.Render(first, RenderOptions{})
	if len(tr.cache) != 3 {
		t.Fatalf("cache has %d entries after first render, want 3", len(tr.cache))
	}

	want := tr.cache["three"]
	tr.Render(second, RenderOptions{})
	if len(tr.cache) != 2 {
		t.Errorf("cache has %d entries after second render, want 2", len(tr.cache))
	}
	if _, ok := tr.cache["one"]; ok {
		t.Error("replies no longer shown should leave the cache")
	}
	if tr.cache["three"] != want {
		t.Error("reply shown in both renders should reuse its cached output")
	}
}

func TestTranscriptMinimumWidth(t *testing.T) {
	tr := NewTranscript(5)
	if tr.width != 20 {
		t.Errorf("width = %d, want 20", tr.width)
	}
}

func TestRenderTranscript(t *testing.T) {
	got := ansi.Strip(RenderTranscript([]internal.Message{{HumanText: "ping", AIText: "pong"}}, 60))
	if !strings.Contains(got, "ping") || !strings.Contains(got, "pong") {
		t.Errorf("RenderTranscript() = %q", got)
	}
}

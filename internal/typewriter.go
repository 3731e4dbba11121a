package internal

import (
	"context"
	"sync"
	"time"
)

// DefaultTypeDelay is the per-character delay of the reveal effect
const DefaultTypeDelay = 25 * time.Millisecond

// Typewriter reveals text one character at a time. Starting a new reveal
// invalidates any reveal still running.
type Typewriter struct {
	Delay time.Duration

	mu  sync.Mutex
	gen uint64
}

// NewTypewriter creates a typewriter with the given per-character delay
func NewTypewriter(delay time.Duration) *Typewriter {
	if delay <= 0 {
		delay = DefaultTypeDelay
	}
	return &Typewriter{Delay: delay}
}

// Start begins a new reveal generation and returns its token
func (t *Typewriter) Start() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	return t.gen
}

// Current reports whether gen is still the latest reveal
func (t *Typewriter) Current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

// Frame returns the first n characters of text
func Frame(text string, n int) string {
	runes := []rune(text)
	if n >= len(runes) {
		return text
	}
	if n < 0 {
		n = 0
	}
	return string(runes[:n])
}

// Reveal calls emit once per character with the new character and the text
// revealed so far. It returns true if the whole text was revealed, false if
// ctx ended or a newer reveal started first.
func (t *Typewriter) Reveal(ctx context.Context, text string, emit func(chunk, revealed string)) bool {
	gen := t.Start()
	runes := []rune(text)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i := range runes {
		if !t.Current(gen) {
			return false
		}
		emit(string(runes[i]), string(runes[:i+1]))

		if i == len(runes)-1 {
			break
		}
		timer.Reset(t.Delay)
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
	return t.Current(gen)
}

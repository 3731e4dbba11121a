package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CancelledMarker replaces the reply of a send the user aborted
const CancelledMarker = "[Cancelled]"

// TitleLimit is how many characters of the first message become the title
const TitleLimit = 40

// DispatchState is the lifecycle of one send
type DispatchState int

const (
	StateIdle DispatchState = iota
	StatePending
	StateFulfilled
	StateCancelled
	StateFailed
)

func (s DispatchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("DispatchState(%d)", int(s))
	}
}

// Result is the final outcome of a send
type Result struct {
	SessionID string
	Index     int
	Message   Message
	State     DispatchState
	Err       error
}

// Speakable reports whether the reply should be played back
func (r Result) Speakable() bool {
	return r.State == StateFulfilled || r.State == StateFailed
}

// Dispatch is one in-flight send, between Begin and Finish
type Dispatch struct {
	SessionID string
	Index     int
	Text      string

	ctx context.Context
}

// Dispatcher drives one round trip at a time: append a pending message,
// call the endpoint, then finalize the message with the reply, a local
// fallback or the cancellation marker.
type Dispatcher struct {
	store   *SessionStore
	client  ChatClient
	speaker Speaker

	mu     sync.Mutex
	state  DispatchState
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. speaker may be nil.
func NewDispatcher(store *SessionStore, client ChatClient, speaker Speaker) *Dispatcher {
	return &Dispatcher{
		store:   store,
		client:  client,
		speaker: speaker,
	}
}

// State returns the state of the latest send
func (d *Dispatcher) State() DispatchState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending reports whether a send is in flight
func (d *Dispatcher) Pending() bool {
	return d.State() == StatePending
}

// Cancel aborts the in-flight call, if any
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return false
	}
	d.cancel()
	return true
}

// DeriveTitle builds a session title from the first message
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleLimit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(runes[:TitleLimit])) + "..."
}

// Fallback is the local reply used when the endpoint cannot answer
func Fallback(text string) string {
	if len([]rune(text)) < 6 {
		return "Tell me a bit more so I can help"
	}
	return `I hear you. "` + text + `".  ` + "\nWould you like advice or just to talk more?"
}

// Begin moves from idle to pending: the message is appended with the
// thinking flag set, the session is titled if this is its first message,
// and the state is persisted. The returned dispatch carries the cancel token.
func (d *Dispatcher) Begin(ctx context.Context, text string) (*Dispatch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	d.mu.Lock()
	if d.state == StatePending {
		d.mu.Unlock()
		return nil, ErrSendInProgress
	}
	callCtx, cancel := context.WithCancel(ctx)
	d.state = StatePending
	d.cancel = cancel
	d.mu.Unlock()

	sessionID := d.store.ActiveID()
	index, ok := d.store.AppendMessage(sessionID, Message{HumanText: text, Thinking: true})
	if !ok {
		d.mu.Lock()
		cancel()
		d.cancel = nil
		d.state = StateIdle
		d.mu.Unlock()
		return nil, fmt.Errorf("failed to append message: no active session")
	}
	if index == 0 {
		d.store.Rename(sessionID, DeriveTitle(text))
	}

	LogDebug("Dispatching message %d in session %s", index, sessionID)
	return &Dispatch{SessionID: sessionID, Index: index, Text: text, ctx: callCtx}, nil
}

// Await performs the network round trip for dispatch
func (d *Dispatcher) Await(dispatch *Dispatch) (string, error) {
	return d.client.Reply(dispatch.ctx, dispatch.Text)
}

// Finish moves a pending dispatch to its terminal state and persists it
func (d *Dispatcher) Finish(dispatch *Dispatch, reply string, err error) Result {
	msg := Message{HumanText: dispatch.Text}
	var state DispatchState

	switch {
	case err == nil:
		state = StateFulfilled
		msg.AIText = reply
	case errors.Is(dispatch.ctx.Err(), context.Canceled):
		state = StateCancelled
		msg.AIText = CancelledMarker
	default:
		state = StateFailed
		msg.AIText = Fallback(dispatch.Text)
		LogDebug("Chat endpoint failed, using fallback: %v", err)
	}

	if !d.store.UpdateMessage(dispatch.SessionID, dispatch.Index, msg) {
		LogDebug("Session %s went away before its reply arrived", dispatch.SessionID)
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.state = state
	d.mu.Unlock()

	return Result{
		SessionID: dispatch.SessionID,
		Index:     dispatch.Index,
		Message:   msg,
		State:     state,
		Err:       err,
	}
}

// Send runs a whole round trip and returns its outcome
func (d *Dispatcher) Send(ctx context.Context, text string) (Result, error) {
	dispatch, err := d.Begin(ctx, text)
	if err != nil {
		return Result{State: StateIdle}, err
	}
	reply, callErr := d.Await(dispatch)
	return d.Finish(dispatch, reply, callErr), nil
}

// Speak plays back a fulfilled reply or a fallback. Cancelled sends stay silent.
func (d *Dispatcher) Speak(ctx context.Context, r Result) error {
	if d.speaker == nil || !r.Speakable() {
		return nil
	}
	return d.speaker.Speak(ctx, r.Message.AIText)
}

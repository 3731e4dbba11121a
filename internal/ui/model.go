package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ropdawg/astral/internal"
)

const (
	thinkingInterval = 200 * time.Millisecond
	sidebarWidth     = 30
	inputHeight      = 3
)

// Options wires a Model to the session layer
type Options struct {
	Store      *internal.SessionStore
	Dispatcher *internal.Dispatcher
	// Recognizer may be nil, in which case spoken input is unsupported
	Recognizer internal.Recognizer
	TypeDelay  time.Duration
	Voice      bool
	Ctx        context.Context
}

type revealState struct {
	sessionID string
	index     int
	text      string
	shown     int
	gen       uint64
}

// Model is the chat TUI: a session sidebar, the transcript and an input box
type Model struct {
	ctx        context.Context
	store      *internal.SessionStore
	dispatcher *internal.Dispatcher
	recognizer internal.Recognizer
	typewriter *internal.Typewriter
	transcript *Transcript

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	sessions     internal.Collection
	activeID     string
	selected     int
	focusSidebar bool

	pending       *internal.Dispatch
	thinkingFrame int
	reveal        *revealState
	voice         bool
	listening     bool
	quitting      bool
	noticeShown   bool

	status string
	err    error
}

type replyMsg struct {
	dispatch *internal.Dispatch
	reply    string
	err      error
}

type revealTickMsg struct{ gen uint64 }

type thinkingTickMsg struct{}

type spokenMsg struct{ err error }

type listenMsg struct {
	text string
	err  error
}

// NewModel creates the chat model
func NewModel(opts Options) Model {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message... (enter to send, alt+enter for newline)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.SetWidth(60)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	h := help.New()
	h.ShowAll = false

	m := Model{
		ctx:        ctx,
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		recognizer: opts.Recognizer,
		typewriter: internal.NewTypewriter(opts.TypeDelay),
		transcript: NewTranscript(60),
		input:      ta,
		viewport:   viewport.New(60, 20),
		spinner:    sp,
		help:       h,
		keys:       defaultKeys(),
		voice:      opts.Voice,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) awaitCmd(d *internal.Dispatch) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.dispatcher.Await(d)
		return replyMsg{dispatch: d, reply: reply, err: err}
	}
}

func (m Model) revealTick(gen uint64) tea.Cmd {
	return tea.Tick(m.typewriter.Delay, func(time.Time) tea.Msg {
		return revealTickMsg{gen: gen}
	})
}

func thinkingTick() tea.Cmd {
	return tea.Tick(thinkingInterval, func(time.Time) tea.Msg {
		return thinkingTickMsg{}
	})
}

func (m Model) speakCmd(r internal.Result) tea.Cmd {
	return func() tea.Msg {
		return spokenMsg{err: m.dispatcher.Speak(m.ctx, r)}
	}
}

func (m Model) listenCmd() tea.Cmd {
	return func() tea.Msg {
		text, err := m.recognizer.Listen(m.ctx)
		return listenMsg{text: text, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()

	case replyMsg:
		cmds = append(cmds, m.finish(msg))
		if m.quitting {
			return m, tea.Quit
		}

	case revealTickMsg:
		if m.reveal == nil || m.reveal.gen != msg.gen || !m.typewriter.Current(msg.gen) {
			break
		}
		m.reveal.shown++
		if m.reveal.shown >= len([]rune(m.reveal.text)) {
			m.reveal = nil
		} else {
			cmds = append(cmds, m.revealTick(msg.gen))
		}
		m.refresh()

	case thinkingTickMsg:
		if m.pending == nil {
			break
		}
		m.thinkingFrame++
		m.refresh()
		cmds = append(cmds, thinkingTick())

	case spokenMsg:
		if msg.err != nil {
			internal.LogDebug("Speech playback failed: %v", msg.err)
			m.status = "Voice playback failed"
		}

	case listenMsg:
		m.listening = false
		switch {
		case errors.Is(msg.err, internal.ErrSpeechUnsupported):
			m.showSpeechNotice()
		case msg.err != nil:
			m.err = msg.err
			m.status = "Listening failed"
		case strings.TrimSpace(msg.text) != "":
			cmds = append(cmds, m.submit(msg.text))
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.listening {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.pending != nil {
			m.quitting = true
			m.dispatcher.Cancel()
			return m, nil
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		if m.pending != nil {
			m.dispatcher.Cancel()
		}
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.focusSidebar = !m.focusSidebar
		if m.focusSidebar {
			m.input.Blur()
			m.selected = m.activeIndex()
			return m, nil
		}
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.New):
		m.store.Create()
		m.stopReveal()
		m.refresh()
		m.selected = m.activeIndex()
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		id := m.activeID
		if m.focusSidebar && m.selected < len(m.sessions) {
			id = m.sessions[m.selected].ID
		}
		m.store.Delete(id)
		m.stopReveal()
		m.refresh()
		m.selected = min(m.selected, len(m.sessions)-1)
		return m, nil
	case key.Matches(msg, m.keys.Voice):
		m.voice = !m.voice
		if m.voice {
			m.status = "Voice on"
		} else {
			m.status = "Voice off"
		}
		return m, nil
	case key.Matches(msg, m.keys.Listen):
		if m.listening {
			return m, nil
		}
		if m.recognizer == nil {
			m.showSpeechNotice()
			return m, nil
		}
		m.listening = true
		m.status = "Listening..."
		return m, tea.Batch(m.spinner.Tick, m.listenCmd())
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focusSidebar {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.sessions)-1 {
				m.selected++
			}
		case key.Matches(msg, m.keys.Send):
			if m.selected < len(m.sessions) && m.sessions[m.selected].ID != m.activeID {
				m.store.Switch(m.sessions[m.selected].ID)
				m.stopReveal()
				m.refresh()
			}
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Send) {
		if m.pending != nil {
			m.dispatcher.Cancel()
			return m, nil
		}
		return m, m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a dispatch on the active session
func (m *Model) submit(text string) tea.Cmd {
	if m.pending != nil || m.dispatcher.Pending() {
		m.status = internal.ErrSendInProgress.Error()
		return nil
	}
	d, err := m.dispatcher.Begin(m.ctx, text)
	if errors.Is(err, internal.ErrEmptyInput) {
		return nil
	}
	if err != nil {
		m.err = err
		m.status = "Send failed"
		return nil
	}

	m.pending = d
	m.thinkingFrame = 0
	m.err = nil
	m.status = ""
	m.input.Reset()
	m.stopReveal()
	m.refresh()
	return tea.Batch(m.awaitCmd(d), thinkingTick())
}

func (m *Model) finish(msg replyMsg) tea.Cmd {
	res := m.dispatcher.Finish(msg.dispatch, msg.reply, msg.err)
	m.pending = nil

	var cmds []tea.Cmd
	switch res.State {
	case internal.StateFulfilled:
		gen := m.typewriter.Start()
		m.reveal = &revealState{
			sessionID: res.SessionID,
			index:     res.Index,
			text:      res.Message.AIText,
			gen:       gen,
		}
		cmds = append(cmds, m.revealTick(gen))
	case internal.StateFailed:
		m.status = "Astral is offline, replied locally"
	case internal.StateCancelled:
		m.status = "Cancelled"
	}
	if m.voice && res.Speakable() {
		cmds = append(cmds, m.speakCmd(res))
	}

	m.refresh()
	return tea.Batch(cmds...)
}

func (m *Model) stopReveal() {
	if m.reveal != nil {
		m.typewriter.Start()
		m.reveal = nil
	}
}

func (m *Model) showSpeechNotice() {
	if m.noticeShown {
		return
	}
	m.noticeShown = true
	m.status = internal.SpeechUnsupportedNotice
}

// refresh pulls the store state and re-renders the transcript
func (m *Model) refresh() {
	m.sessions = m.store.Sessions()
	m.activeID = m.store.ActiveID()

	var messages []internal.Message
	if s, ok := m.store.Active(); ok {
		messages = s.Messages
	}

	opts := RenderOptions{ThinkingFrame: m.thinkingFrame}
	if m.reveal != nil && m.reveal.sessionID == m.activeID {
		opts.Reveal = &Reveal{Index: m.reveal.index, Runes: m.reveal.shown}
	}
	m.viewport.SetContent(m.transcript.Render(messages, opts))
	m.viewport.GotoBottom()
}

func (m Model) activeIndex() int {
	_, i := m.sessions.Find(m.activeID)
	return max(i, 0)
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, right := m.paneWidths()

	m.input.SetWidth(m.width - 4)

	bodyHeight := m.height - inputHeight - 4
	if bodyHeight < 6 {
		bodyHeight = 6
	}
	m.viewport.Width = right - 4
	m.viewport.Height = bodyHeight - 2
	m.transcript.SetWidth(m.viewport.Width)
}

func (m Model) paneWidths() (int, int) {
	left := sidebarWidth
	if left > m.width/3 {
		left = m.width / 3
	}
	if left < 16 {
		left = 16
	}
	right := m.width - left - 1
	if right < 24 {
		right = 24
	}
	return left, right
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	bodyHeight := m.viewport.Height
	sidebar := panelStyle(m.focusSidebar).Width(left - 2).Height(bodyHeight).Render(m.sidebarView(left - 4))
	chat := panelStyle(false).Width(right - 2).Height(bodyHeight).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)

	input := panelStyle(!m.focusSidebar).Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		body,
		input,
		m.help.View(m.keys),
	)
}

func (m Model) sidebarView(width int) string {
	var b strings.Builder
	b.WriteString(sidebarTitleStyle.Render("Chats"))
	b.WriteString("\n")
	for i, s := range m.sessions {
		title := ansi.Truncate(s.Title, max(width-2, 1), "…")
		prefix := "  "
		style := sidebarItemStyle
		if s.ID == m.activeID {
			prefix = "● "
			style = sidebarActiveStyle
		}
		if m.focusSidebar && i == m.selected {
			style = sidebarCursorStyle
		}
		b.WriteString(style.Render(prefix + title))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	title := internal.DefaultSessionTitle
	count := 0
	if s, _ := m.sessions.Find(m.activeID); s != nil {
		title = s.Title
		count = len(s.Messages)
	}
	status := fmt.Sprintf("%s  messages=%d", ansi.Truncate(title, 40, "…"), count)
	if m.pending != nil {
		status += "  [thinking]"
	}
	if m.voice {
		status += "  [voice]"
	}
	if m.listening {
		status += "  " + m.spinner.View() + " listening"
	}
	line := statusStyle.Render(status)
	if strings.TrimSpace(m.status) != "" {
		line += " " + noticeStyle.Render(m.status)
	}
	if m.err != nil {
		line += " " + noticeStyle.Render("err="+m.err.Error())
	}
	return line
}

type keyMap struct {
	Send     key.Binding
	Cancel   key.Binding
	New      key.Binding
	Delete   key.Binding
	Tab      key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Voice    key.Binding
	Listen   key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send/stop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop"),
		),
		New: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "delete chat"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "chats/input"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Voice: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "voice on/off"),
		),
		Listen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "speak"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.New, k.Delete, k.Tab, k.Voice, k.Listen, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Cancel, k.New, k.Delete},
		{k.Tab, k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Voice, k.Listen, k.Quit},
	}
}

// Pending reports whether a send is still in flight
func (m Model) Pending() bool {
	return m.pending != nil
}

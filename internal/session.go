package internal

// DefaultSessionTitle is the title a session carries until its first message
const DefaultSessionTitle = "New Chat"

// Session represents one chat conversation
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// Message is one human turn paired with its reply.
// A message starts with Thinking set and an empty AIText and is finalized
// exactly once with a reply, a fallback or the cancellation marker.
type Message struct {
	HumanText string `json:"humanText" yaml:"human_text"`
	AIText    string `json:"aiText" yaml:"ai_text"`
	Thinking  bool   `json:"thinking" yaml:"thinking"`
}

// Collection is the ordered list of sessions, most recently created first
type Collection []*Session

// Find returns the session with the given id
func (c Collection) Find(id string) (*Session, int) {
	for i, s := range c {
		if s != nil && s.ID == id {
			return s, i
		}
	}
	return nil, -1
}

// Clone returns a deep copy so callers cannot mutate store-owned state
func (c Collection) Clone() Collection {
	out := make(Collection, 0, len(c))
	for _, s := range c {
		if s == nil {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	cp := &Session{ID: s.ID, Title: s.Title}
	if s.Messages != nil {
		cp.Messages = make([]Message, len(s.Messages))
		copy(cp.Messages, s.Messages)
	}
	return cp
}

// DisplayTitle returns the title or the default placeholder
func (s *Session) DisplayTitle() string {
	if s.Title == "" {
		return DefaultSessionTitle
	}
	return s.Title
}

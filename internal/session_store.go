package internal

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore owns the in-memory session collection and the active id.
// Every mutation is written through to the persistence adapter and then
// announced to the registered change listeners.
type SessionStore struct {
	mu          sync.Mutex
	persistence *Persistence
	sessions    Collection
	activeID    string
	newID       func() string
	listeners   []func()
}

// StoreOption configures a SessionStore
type StoreOption func(*SessionStore)

// WithIDGenerator overrides how session ids are generated
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *SessionStore) {
		s.newID = fn
	}
}

// NewSessionID returns a unique, time-ordered session id
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewSessionStore loads the stored collection. When nothing is stored a
// fresh session is created, so the collection is never empty afterwards.
func NewSessionStore(p *Persistence, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		persistence: p,
		newID:       NewSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sessions = p.Load()
	s.activeID = p.LoadActiveID()
	if _, i := s.sessions.Find(s.activeID); i < 0 {
		s.activeID = ""
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		}
	}

	if len(s.sessions) == 0 {
		s.Create()
	}
	return s
}

// OnChange registers a listener called after every mutation
func (s *SessionStore) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *SessionStore) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// persistLocked writes the collection and active id; callers hold mu
func (s *SessionStore) persistLocked() {
	s.persistence.Save(s.sessions)
	s.persistence.SaveActiveID(s.activeID)
}

func (s *SessionStore) uniqueIDLocked() string {
	for {
		id := s.newID()
		if _, i := s.sessions.Find(id); i < 0 && id != "" {
			return id
		}
	}
}

func (s *SessionStore) createLocked() *Session {
	session := &Session{
		ID:       s.uniqueIDLocked(),
		Title:    DefaultSessionTitle,
		Messages: []Message{},
	}
	s.sessions = append(Collection{session}, s.sessions...)
	s.activeID = session.ID
	return session
}

// Create inserts a new empty session at the front and makes it active
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	session := s.createLocked()
	s.persistLocked()
	cp := session.Clone()
	s.mu.Unlock()

	LogDebug("Created session %s", cp.ID)
	s.notify()
	return cp
}

// Switch makes the session with id active. Unknown ids are ignored.
func (s *SessionStore) Switch(id string) bool {
	s.mu.Lock()
	if _, i := s.sessions.Find(id); i < 0 {
		s.mu.Unlock()
		LogDebug("Ignoring switch to unknown session %s", id)
		return false
	}
	s.activeID = id
	s.persistence.SaveActiveID(id)
	s.mu.Unlock()

	s.notify()
	return true
}

// Rename overwrites the title of the session with id
func (s *SessionStore) Rename(id, title string) bool {
	s.mu.Lock()
	session, _ := s.sessions.Find(id)
	if session == nil {
		s.mu.Unlock()
		return false
	}
	session.Title = title
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// Delete removes the session with id. When the active session goes away the
// first remaining one is promoted, or a new one is created if none remain.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	_, idx := s.sessions.Find(id)
	if idx >= 0 {
		s.sessions = append(s.sessions[:idx:idx], s.sessions[idx+1:]...)
	}

	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		} else {
			s.createLocked()
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	return idx >= 0
}

// Active returns a copy of the active session
func (s *SessionStore) Active() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, _ := s.sessions.Find(s.activeID)
	if session == nil {
		return nil, false
	}
	return session.Clone(), true
}

// ActiveID returns the id of the active session
func (s *SessionStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Sessions returns a copy of the ordered collection
func (s *SessionStore) Sessions() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Clone()
}

// Find returns a copy of the session with id
func (s *SessionStore) Find(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, _ := s.sessions.Find(id)
	if session == nil {
		return nil, false
	}
	return session.Clone(), true
}

// AppendMessage appends msg to the session and returns its index
func (s *SessionStore) AppendMessage(id string, msg Message) (int, bool) {
	s.mu.Lock()
	session, _ := s.sessions.Find(id)
	if session == nil {
		s.mu.Unlock()
		return -1, false
	}
	session.Messages = append(session.Messages, msg)
	index := len(session.Messages) - 1
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	return index, true
}

// UpdateMessage replaces the message at index in the session
func (s *SessionStore) UpdateMessage(id string, index int, msg Message) bool {
	s.mu.Lock()
	session, _ := s.sessions.Find(id)
	if session == nil || index < 0 || index >= len(session.Messages) {
		s.mu.Unlock()
		return false
	}
	session.Messages[index] = msg
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// Close releases the persistence backend
func (s *SessionStore) Close() error {
	return s.persistence.Close()
}

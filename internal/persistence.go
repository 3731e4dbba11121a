package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// HistoryKey is the single store entry holding the serialized sessions
	HistoryKey = "chatHistory"
	// ActiveKey holds the id of the session left active by the last run
	ActiveKey = "activeChat"
)

// Backend kinds accepted by OpenBackend
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Persistence reads and writes the session collection. It never returns
// errors to its callers: a missing or corrupt entry loads as an empty
// collection and failed writes are logged and dropped.
type Persistence struct {
	backend KVBackend
}

// NewPersistence creates a persistence adapter over backend
func NewPersistence(backend KVBackend) *Persistence {
	return &Persistence{backend: backend}
}

// OpenBackend opens the backend of the given kind under dataDir
func OpenBackend(kind, dataDir string) (KVBackend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(dataDir), nil
	case BackendSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, &StorageError{Path: dataDir, Op: "open", Err: err}
		}
		return NewSQLiteBackend(filepath.Join(dataDir, "astral.db"))
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: file, sqlite)", kind)
	}
}

// Load returns the stored collection, or an empty one
func (p *Persistence) Load() Collection {
	raw, err := p.backend.Get(HistoryKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			LogWarn("Failed to read chat history: %v", err)
		}
		return Collection{}
	}

	var sessions Collection
	if err := json.Unmarshal(raw, &sessions); err != nil {
		LogWarn("%v", &ParseError{Source: "store", Key: HistoryKey, Err: err})
		return Collection{}
	}

	out := make(Collection, 0, len(sessions))
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if s.Messages == nil {
			s.Messages = []Message{}
		}
		out = append(out, s)
	}
	return out
}

// Save writes the collection
func (p *Persistence) Save(sessions Collection) {
	if sessions == nil {
		sessions = Collection{}
	}
	data, err := encodeJSON(sessions)
	if err != nil {
		LogWarn("Failed to encode chat history: %v", err)
		return
	}
	if err := p.backend.Put(HistoryKey, data); err != nil {
		LogWarn("Failed to save chat history: %v", err)
	}
}

// LoadActiveID returns the id persisted as active, or "" if none
func (p *Persistence) LoadActiveID() string {
	raw, err := p.backend.Get(ActiveKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			LogDebug("Failed to read active chat: %v", err)
		}
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		LogDebug("Ignoring corrupt active chat entry: %v", err)
		return ""
	}
	return id
}

// SaveActiveID persists the active session id
func (p *Persistence) SaveActiveID(id string) {
	data, _ := encodeJSON(id)
	if err := p.backend.Put(ActiveKey, data); err != nil {
		LogWarn("Failed to save active chat: %v", err)
	}
}

// encodeJSON marshals v without HTML escaping, matching what the browser
// client's JSON.stringify writes
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Raw returns the serialized history exactly as stored
func (p *Persistence) Raw() ([]byte, error) {
	return p.backend.Get(HistoryKey)
}

// Close releases the backend
func (p *Persistence) Close() error {
	return p.backend.Close()
}

package server

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ropdawg/astral/internal"
)

// MemoryKey is the storage key the memory bank persists under
const MemoryKey = "memory"

// DefaultMemoryLimit caps the number of remembered items
const DefaultMemoryLimit = 1000

// MemoryItem is one remembered turn
type MemoryItem struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

// MemoryBank keeps recent turns for keyword retrieval. When a backend is
// set, every append is written through to it.
type MemoryBank struct {
	mu      sync.Mutex
	items   []MemoryItem
	limit   int
	backend internal.KVBackend
	now     func() time.Time
}

// NewMemoryBank creates a bank holding at most limit items. backend may be nil.
func NewMemoryBank(limit int, backend internal.KVBackend) *MemoryBank {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	m := &MemoryBank{limit: limit, backend: backend, now: time.Now}
	m.load()
	return m
}

func (m *MemoryBank) load() {
	if m.backend == nil {
		return
	}
	data, err := m.backend.Get(MemoryKey)
	if err != nil {
		if !errors.Is(err, internal.ErrKeyNotFound) {
			internal.LogWarn("Failed to read memory: %v", err)
		}
		return
	}
	var items []MemoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		internal.LogWarn("Ignoring unreadable memory: %v", err)
		return
	}
	if len(items) > m.limit {
		items = items[len(items)-m.limit:]
	}
	m.items = items
}

// Append remembers text under role, dropping the oldest item past the cap
func (m *MemoryBank) Append(role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, MemoryItem{
		Role: role,
		Text: text,
		TS:   m.now().UTC().Format("2006-01-02T15:04:05.000000"),
	})
	if over := len(m.items) - m.limit; over > 0 {
		m.items = append([]MemoryItem(nil), m.items[over:]...)
	}

	if m.backend == nil {
		return
	}
	data, err := json.Marshal(m.items)
	if err != nil {
		internal.LogWarn("Failed to encode memory: %v", err)
		return
	}
	if err := m.backend.Put(MemoryKey, data); err != nil {
		internal.LogWarn("Failed to save memory: %v", err)
	}
}

// Len returns the number of remembered items
func (m *MemoryBank) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Relevant returns up to limit items sharing keywords with query, best
// overlap first. With an empty query or no overlap at all it returns the
// most recent limit items.
func (m *MemoryBank) Relevant(query string, limit int) []MemoryItem {
	m.mu.Lock()
	items := make([]MemoryItem, len(m.items))
	copy(items, m.items)
	m.mu.Unlock()

	if limit <= 0 {
		return []MemoryItem{}
	}
	recent := func() []MemoryItem {
		if len(items) > limit {
			return items[len(items)-limit:]
		}
		return items
	}

	if query == "" {
		return recent()
	}

	qwords := keywords(query)
	type scored struct {
		score int
		item  MemoryItem
	}
	var matches []scored
	for _, it := range items {
		score := 0
		for w := range keywords(it.Text) {
			if _, ok := qwords[w]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{score, it})
		}
	}
	if len(matches) == 0 {
		return recent()
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]MemoryItem, len(matches))
	for i, s := range matches {
		out[i] = s.item
	}
	return out
}

// keywords returns the set of lowercase alphanumeric words longer than two characters
func keywords(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len([]rune(w)) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

// FormatMemories renders items as the prompt's memory preamble
func FormatMemories(items []MemoryItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant memories:\n")
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		role := it.Role
		if role == "" {
			role = "mem"
		}
		b.WriteString("- (" + role + ") " + it.Text)
	}
	b.WriteString("\n\n")
	return b.String()
}

package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ropdawg/astral/internal"
)

func TestMemoryBank_RelevantOrdersByOverlap(t *testing.T) {
	m := NewMemoryBank(10, nil)
	m.Append("user", "I keep relapsing on weekends")
	m.Append("ai", "Weekends can be hard. What usually happens on weekends?")
	m.Append("user", "My sister visited")
	m.Append("user", "weekends relapsing again, weekends are rough")

	got := m.Relevant("why do I keep relapsing on weekends", 2)
	require.Len(t, got, 2)
	// "keep", "relapsing" and "weekends" overlap with the first item.
	assert.Equal(t, "I keep relapsing on weekends", got[0].Text)
	assert.Equal(t, "weekends relapsing again, weekends are rough", got[1].Text)
}

func TestMemoryBank_NoOverlapReturnsRecent(t *testing.T) {
	m := NewMemoryBank(10, nil)
	for i := 0; i < 6; i++ {
		m.Append("user", fmt.Sprintf("entry %d", i))
	}

	got := m.Relevant("zzz", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "entry 3", got[0].Text)
	assert.Equal(t, "entry 5", got[2].Text)

	assert.Len(t, m.Relevant("", 2), 2)
	assert.Empty(t, m.Relevant("entry", 0))
}

func TestMemoryBank_ShortWordsIgnored(t *testing.T) {
	m := NewMemoryBank(10, nil)
	m.Append("user", "go to it")
	m.Append("user", "later")

	got := m.Relevant("go to it", 5)
	// Nothing longer than two characters overlaps, so the most recent items come back.
	require.Len(t, got, 2)
	assert.Equal(t, "go to it", got[0].Text)
}

func TestMemoryBank_Cap(t *testing.T) {
	m := NewMemoryBank(3, nil)
	for i := 0; i < 5; i++ {
		m.Append("user", fmt.Sprintf("item %d", i))
	}
	assert.Equal(t, 3, m.Len())
	got := m.Relevant("", 10)
	assert.Equal(t, "item 2", got[0].Text)
}

func TestMemoryBank_PersistsThroughBackend(t *testing.T) {
	backend := internal.NewMemoryBackend()
	m := NewMemoryBank(5, backend)
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.Append("user", "remember the breathing exercise")

	reloaded := NewMemoryBank(5, backend)
	got := reloaded.Relevant("breathing", 5)
	require.Len(t, got, 1)
	assert.Equal(t, MemoryItem{Role: "user", Text: "remember the breathing exercise", TS: "2026-01-02T03:04:05.000000"}, got[0])
}

func TestMemoryBank_IgnoresCorruptBackend(t *testing.T) {
	backend := internal.NewMemoryBackend()
	require.NoError(t, backend.Put(MemoryKey, []byte("{not json")))

	m := NewMemoryBank(5, backend)
	assert.Zero(t, m.Len())
}

func TestFormatMemories(t *testing.T) {
	assert.Equal(t, "", FormatMemories(nil))
	got := FormatMemories([]MemoryItem{{Role: "user", Text: "hi"}, {Text: "note"}})
	assert.Equal(t, "Relevant memories:\n- (user) hi\n- (mem) note\n\n", got)
}

package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ropdawg/astral/testutil"
)

func TestFileBackend_GetPut(t *testing.T) {
	dir := filepath.Join(testutil.CreateTempDir(t), "data")
	b := NewFileBackend(dir)

	if _, err := b.Get(HistoryKey); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() before write error = %v, want ErrKeyNotFound", err)
	}

	if err := b.Put(HistoryKey, []byte("[]")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := b.Get(HistoryKey)
	if err != nil || string(got) != "[]" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	if want := filepath.Join(dir, "chatHistory.json"); b.PathFor(HistoryKey) != want {
		t.Errorf("PathFor() = %q, want %q", b.PathFor(HistoryKey), want)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileBackend_Keys(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateHistoryFileFixture(t, dir)
	testutil.WriteFile(t, dir, "notes.txt", []byte("ignored"))
	testutil.WriteFile(t, dir, ".chatHistory-123.tmp", []byte("ignored"))

	keys, err := NewFileBackend(dir).Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != HistoryKey {
		t.Errorf("Keys() = %v, want [%s]", keys, HistoryKey)
	}

	missing, err := NewFileBackend(filepath.Join(dir, "absent")).Keys()
	if err != nil || len(missing) != 0 {
		t.Errorf("Keys() on missing dir = %v, %v", missing, err)
	}
}

func TestFileBackend_ReadsBrowserHistory(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.CreateHistoryFileFixture(t, dir)

	store := NewSessionStore(NewPersistence(NewFileBackend(dir)))
	if got := store.ActiveID(); got != "1767225600000" {
		t.Errorf("ActiveID() = %q, want newest session", got)
	}
	if n := len(store.Sessions()); n != 2 {
		t.Errorf("sessions = %d, want 2", n)
	}
}

package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SampleHistory is a stored chat history as the browser client wrote it
const SampleHistory = `[{"id":"1767225600000","title":"Feeling overwhelmed at work","messages":[{"humanText":"Feeling overwhelmed at work","aiText":"That sounds heavy. What part weighs on you most?","thinking":false}]},{"id":"1767139200000","title":"New Chat","messages":[]}]`

// CreateSQLiteFixture creates a SQLite kv database holding the sample history
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createKVTable(t, db)
	InsertValue(t, db, "chatHistory", SampleHistory)
}

// CreateHistoryFileFixture writes the sample history as a file backend would
func CreateHistoryFileFixture(t *testing.T, dir string) string {
	t.Helper()
	return WriteFile(t, dir, "chatHistory.json", []byte(SampleHistory))
}

package internal

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrKeyNotFound is returned by a KVBackend when the key was never written
var ErrKeyNotFound = errors.New("key not found")

// KVBackend is the local key-value store the persistence adapter writes to
type KVBackend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// KeyLister is implemented by backends that can enumerate their keys
type KeyLister interface {
	Keys() ([]string, error)
}

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB
)`

// OpenDatabase opens (creating if needed) a SQLite database for read-write use
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// SQLiteBackend stores values in a single kv table
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend opens the database at path and ensures the kv table exists
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return newSQLiteBackend(db, path)
}

func newSQLiteBackend(db *sql.DB, path string) (*SQLiteBackend, error) {
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: fmt.Errorf("init schema: %w", err)}
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

// Get returns the value stored under key
func (b *SQLiteBackend) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, &StorageError{Path: b.path, Op: "read", Err: fmt.Errorf("query failed: %w", err)}
	}
	return value, nil
}

// Put stores value under key, replacing any previous value
func (b *SQLiteBackend) Put(key string, value []byte) error {
	_, err := b.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return &StorageError{Path: b.path, Op: "write", Err: err}
	}
	return nil
}

// Keys lists all stored keys
func (b *SQLiteBackend) Keys() ([]string, error) {
	rows, err := b.db.Query("SELECT key FROM kv ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

// Close closes the underlying database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

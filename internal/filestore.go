package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores each key as <dir>/<key>.json
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// PathFor returns the file that holds key
func (b *FileBackend) PathFor(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Get reads the value stored under key
func (b *FileBackend) Get(key string) ([]byte, error) {
	path := b.PathFor(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}
	return data, nil
}

// Put writes value under key. The write goes through a temp file and a
// rename so a crash never leaves a half-written file behind.
func (b *FileBackend) Put(key string, value []byte) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return &StorageError{Path: b.dir, Op: "write", Err: err}
	}

	path := b.PathFor(key)
	tmp, err := os.CreateTemp(b.dir, "."+key+"-*.tmp")
	if err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Path: path, Op: "write", Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// Keys lists the keys present in the directory
func (b *FileBackend) Keys() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

// Close is a no-op for the file backend
func (b *FileBackend) Close() error {
	return nil
}

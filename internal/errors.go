package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a send is attempted with blank text
	ErrEmptyInput = errors.New("empty input")
	// ErrSendInProgress is returned when a send is attempted while another is pending
	ErrSendInProgress = errors.New("a message is already being sent")
	// ErrMissingReply is returned when the endpoint answers without a reply field
	ErrMissingReply = errors.New("response has no reply field")
	// ErrSpeechUnsupported is returned when no speech engine is available
	ErrSpeechUnsupported = errors.New("speech recognition not supported")
	// ErrAssetNotFound is returned when an asset is neither cached nor reachable
	ErrAssetNotFound = errors.New("asset not found")
)

// StorageError represents errors accessing the persistent store
type StorageError struct {
	Path string
	Op   string // "open", "read", "write"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing stored or received data
type ParseError struct {
	Source string // "store", "endpoint", "config"
	Key    string // storage key or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EndpointError represents a failed round trip to the chat endpoint
type EndpointError struct {
	URL    string
	Status int
	Err    error
}

func (e *EndpointError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("endpoint error [%s]: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("endpoint error [%s]: status %d", e.URL, e.Status)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

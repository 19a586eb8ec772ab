package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreNotFound is returned when no built store exists at the configured location.
	ErrStoreNotFound = errors.New("vector store not found")
	// ErrEmptyQuery is returned for blank user input.
	ErrEmptyQuery = errors.New("empty query")
)

// StoreBuildError reports an index-time failure. The previously active store,
// if any, is left untouched.
type StoreBuildError struct {
	Op  string
	Err error
}

func (e *StoreBuildError) Error() string {
	return fmt.Sprintf("store build failed (%s): %v", e.Op, e.Err)
}

func (e *StoreBuildError) Unwrap() error { return e.Err }

// EmbeddingMismatchError reports that a store was built with a different
// embedding function than the one configured now.
type EmbeddingMismatchError struct {
	Stored  string
	Current string
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf("embedding mismatch: store built with %q, configured embedder is %q", e.Stored, e.Current)
}

// GenerationError wraps a failure of the text-generation backend.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

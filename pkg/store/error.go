package store

import "errors"

var (
	// ErrDocumentNotFound is returned when a document id does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrConnection is returned when the backing database cannot be reached.
	ErrConnection = errors.New("store connection failed")
)

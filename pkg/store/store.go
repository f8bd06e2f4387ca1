// Package store defines the storage gateway for documents and their
// embedded text chunks.
//
// A document and all of its chunks are written inside a single Tx so that a
// failed ingestion leaves no rows behind. Ranked retrieval is served by
// TopKByDistance, which orders a document's chunks by cosine distance to a
// query vector (ascending, lower = more similar). Implementations assume
// pre-normalized vectors of a fixed dimension.
package store

import (
	"context"
	"time"
)

// Document is a stored upload. The ID is assigned by the store at insertion.
type Document struct {
	ID         int64
	Filename   string
	UploadedAt time.Time
}

// ScoredChunk is one ranked retrieval result. Distance is the cosine
// distance between the chunk's embedding and the query vector.
type ScoredChunk struct {
	Text     string
	Order    int
	Distance float64
}

// Tx is a single atomic ingestion scope. Either Commit persists every
// inserted row or Rollback (or a failed Commit) removes all of them.
type Tx interface {
	// InsertDocument inserts the document row and returns its generated id.
	InsertDocument(ctx context.Context, filename string) (int64, error)

	// InsertChunk inserts one chunk row owned by the given document.
	// Chunk orders are unique within a document.
	InsertChunk(ctx context.Context, documentID int64, text string, embedding []float32, order int) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the persistence gateway consumed by the ingestion coordinator
// and the retrieval ranker.
type Store interface {
	// Begin opens a transaction for one ingestion.
	Begin(ctx context.Context) (Tx, error)

	// TopKByDistance returns up to k chunks of the given document ranked by
	// ascending cosine distance to the query vector.
	TopKByDistance(ctx context.Context, documentID int64, query []float32, k int) ([]ScoredChunk, error)

	// DocumentExists reports whether a document row exists for the id.
	DocumentExists(ctx context.Context, documentID int64) (bool, error)

	// DeleteDocument removes a document and, by the ownership contract,
	// cascades to all of its chunks. No API surface exposes deletion yet;
	// the contract lives here so chunks can never outlive their document.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Close releases any resources held by the store.
	Close() error
}

// Package ingest turns a document's extracted text into persisted,
// searchable chunks.
//
// One ingestion is one storage transaction: the document row and every
// chunk row commit together or not at all. Chunk embeddings are computed
// with bounded parallelism before the transaction opens, which keeps the
// transaction short; insert order is always reconstructed from chunk
// order, never from embedding completion order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/stacks/pkg/chunker"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/store"
)

const (
	// ChunkSize and ChunkOverlap are the fixed chunking policy for uploaded
	// documents, in runes. They are deliberately not user-configurable.
	ChunkSize    = 500
	ChunkOverlap = 50

	// embedConcurrency bounds parallel embedding computation per ingestion.
	embedConcurrency = 4
)

var (
	// ErrEmptyDocument is returned when a document has no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrAborted is returned when any step of the transactional batch
	// fails. The transaction is fully rolled back; no rows survive.
	ErrAborted = errors.New("ingestion aborted")
)

// Result describes a successful ingestion.
type Result struct {
	DocumentID   int64  `json:"documentId"`
	Filename     string `json:"filename"`
	ChunksStored int    `json:"chunksStored"`
}

// Coordinator orchestrates chunking, embedding, and atomic persistence.
type Coordinator struct {
	embedder embeddings.Embedder
	store    store.Store
	events   eventstream.Publisher
	logger   *zap.Logger
}

// NewCoordinator creates an ingestion coordinator. The events publisher is
// best-effort; pass the nop publisher when eventing is disabled.
func NewCoordinator(embedder embeddings.Embedder, st store.Store, events eventstream.Publisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		embedder: embedder,
		store:    st,
		events:   events,
		logger:   logger,
	}
}

// Ingest chunks rawText, embeds every non-blank chunk, and commits the
// document with its chunks in one transaction.
//
// Blank chunks are dropped and the survivors renumbered, so stored chunk
// orders are always the dense sequence 0..n-1.
func (c *Coordinator) Ingest(ctx context.Context, rawText, filename string) (*Result, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyDocument
	}

	start := time.Now()

	windows, err := chunker.Chunk(rawText, ChunkSize, ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", filename, err)
	}

	chunks := make([]string, 0, len(windows))
	for _, w := range windows {
		if strings.TrimSpace(w) == "" {
			continue
		}
		chunks = append(chunks, w)
	}

	c.logger.Debug("chunked document",
		zap.String("filename", filename),
		zap.Int("windows", len(windows)),
		zap.Int("chunks", len(chunks)),
	)

	vectors, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", ErrAborted, err)
	}

	committed := false
	defer func() {
		if !committed {
			// Roll back even when the request context is already gone.
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				c.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	docID, err := tx.InsertDocument(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting document: %w", ErrAborted, err)
	}

	for i, text := range chunks {
		if err := tx.InsertChunk(ctx, docID, text, vectors[i], i); err != nil {
			return nil, fmt.Errorf("%w: inserting chunk %d: %w", ErrAborted, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing: %w", ErrAborted, err)
	}
	committed = true

	c.logger.Info("document ingested",
		zap.Int64("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks_stored", len(chunks)),
		zap.Duration("duration", time.Since(start)),
	)

	c.publish(ctx, docID, filename, len(chunks), time.Since(start))

	return &Result{
		DocumentID:   docID,
		Filename:     filename,
		ChunksStored: len(chunks),
	}, nil
}

// embedChunks computes embeddings for every chunk with bounded concurrency.
// The result slice is indexed by chunk order.
func (c *Coordinator) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range chunks {
		g.Go(func() error {
			vec, err := c.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			if len(vec) == 0 {
				// Blank chunks were filtered already, so an empty vector
				// means the backend produced nothing usable.
				return fmt.Errorf("embedding chunk %d: %w", i, embeddings.ErrUnavailable)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// publish emits a document-ingested event. Event delivery is best-effort
// and never fails an already-committed ingestion.
func (c *Coordinator) publish(ctx context.Context, docID int64, filename string, chunksStored int, elapsed time.Duration) {
	event := &eventstream.DocumentIngestedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Document: eventstream.DocumentMeta{
			ID:       docID,
			Filename: filename,
		},
		ChunksStored: chunksStored,
		DurationMs:   elapsed.Milliseconds(),
	}

	if err := c.events.PublishDocumentIngested(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("failed to publish ingestion event",
			zap.Int64("document_id", docID),
			zap.Error(err),
		)
	}
}

// Package retrieval ranks a document's stored chunks against a free-text
// question.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/store"
)

// DefaultTopK is the number of chunks returned per query.
const DefaultTopK = 5

// ErrBlankQuestion is returned when the question is empty after trimming.
var ErrBlankQuestion = errors.New("question must not be blank")

// Result is one ranked chunk. Score is the cosine distance to the query
// embedding; lower is more similar.
type Result struct {
	ChunkText  string  `json:"chunk_text"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float64 `json:"similarity_score"`
}

// Ranker answers queries by embedding the question and delegating to the
// store's distance-ranked top-K query.
type Ranker struct {
	embedder embeddings.Embedder
	store    store.Store
	logger   *zap.Logger
}

// NewRanker creates a retrieval ranker sharing the process-wide embedder.
func NewRanker(embedder embeddings.Embedder, st store.Store, logger *zap.Logger) *Ranker {
	return &Ranker{
		embedder: embedder,
		store:    st,
		logger:   logger,
	}
}

// Query returns up to DefaultTopK chunks of the document ranked by
// ascending distance to the question. A document with no chunks yields an
// empty, non-error result; an unknown document id yields
// store.ErrDocumentNotFound.
func (r *Ranker) Query(ctx context.Context, documentID int64, question string) ([]Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrBlankQuestion
	}

	exists, err := r.store.DocumentExists(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("checking document %d: %w", documentID, err)
	}
	if !exists {
		return nil, fmt.Errorf("document %d: %w", documentID, store.ErrDocumentNotFound)
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vec) == 0 {
		// A question's relevance cannot be computed without a vector.
		return nil, fmt.Errorf("embedding question: %w", embeddings.ErrUnavailable)
	}

	rows, err := r.store.TopKByDistance(ctx, documentID, vec, DefaultTopK)
	if err != nil {
		return nil, fmt.Errorf("ranking chunks for document %d: %w", documentID, err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			ChunkText:  row.Text,
			ChunkOrder: row.Order,
			Score:      row.Distance,
		})
	}

	r.logger.Debug("query ranked",
		zap.Int64("document_id", documentID),
		zap.Int("results", len(results)),
	)

	return results, nil
}

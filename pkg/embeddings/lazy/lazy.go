// Package lazy wraps an embeddings backend with process-wide lazy
// initialization. The backing model is loaded at most once: the first Embed
// call triggers the load, concurrent first callers share a single in-flight
// load, and a failed load is surfaced to every waiter and retried on the
// next call instead of being cached.
//
// Outputs are L2-normalized before being returned, so downstream ranking can
// assume unit-length vectors under a cosine-distance-equivalent metric.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/stacks/pkg/embeddings"
)

// Factory constructs the underlying embeddings backend. It is invoked at
// most once per successful load.
type Factory func() (embeddings.Embedder, error)

// Embedder is a lazily-initialized, shareable embeddings.Embedder. It is
// safe for concurrent use; after initialization the backend is shared
// read-only across all callers.
type Embedder struct {
	factory Factory
	logger  *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	backend embeddings.Embedder
}

// NewEmbedder creates a lazy embedder around the given backend factory.
// No model is loaded until the first non-blank Embed call.
func NewEmbedder(factory Factory, logger *zap.Logger) *Embedder {
	return &Embedder{
		factory: factory,
		logger:  logger,
	}
}

// Embed converts text into a unit-length vector embedding.
//
// Blank input (empty after trimming whitespace) returns a zero-length
// vector without touching the model; callers must treat a zero-length
// result as "no embedding available" and skip downstream use.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	backend, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := backend.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embeddings.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", embeddings.ErrUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: backend returned an empty embedding", embeddings.ErrUnavailable)
	}

	return normalize(vec)
}

// acquire returns the loaded backend, loading it on first use. Concurrent
// callers during the first load share one in-flight load via singleflight.
func (e *Embedder) acquire(ctx context.Context) (embeddings.Embedder, error) {
	e.mu.RLock()
	backend := e.backend
	e.mu.RUnlock()
	if backend != nil {
		return backend, nil
	}

	result, err, _ := e.group.Do("load", func() (any, error) {
		// Re-check under the write path: a previous flight may have
		// finished between the read above and this call.
		e.mu.RLock()
		existing := e.backend
		e.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		loaded, err := e.factory()
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.backend = loaded
		e.mu.Unlock()

		e.logger.Info("embedding backend loaded")
		return loaded, nil
	})
	if err != nil {
		// Nothing is cached on failure, so the next caller retries the load.
		return nil, fmt.Errorf("%w: loading model: %v", embeddings.ErrUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return result.(embeddings.Embedder), nil
}

// Close releases the backend if it was ever loaded. A closed embedder
// reloads on the next Embed call.
func (e *Embedder) Close() error {
	e.mu.Lock()
	backend := e.backend
	e.backend = nil
	e.mu.Unlock()

	if backend == nil {
		return nil
	}
	return backend.Close()
}

// normalize scales v to unit Euclidean length.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: zero-norm embedding cannot be normalized", embeddings.ErrUnavailable)
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

var _ embeddings.Embedder = (*Embedder)(nil)

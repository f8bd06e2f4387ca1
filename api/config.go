// Package api provides the HTTP API server for uploading documents and
// asking questions against them.
package api

import (
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/answer"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/retrieval"
	"github.com/papercomputeco/stacks/pkg/store"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Extractor converts uploaded file bytes into plain text.
	Extractor extract.Extractor

	// Coordinator runs the chunk-embed-store ingestion pipeline.
	Coordinator *ingest.Coordinator

	// Ranker answers questions with distance-ranked chunks.
	Ranker *retrieval.Ranker

	// Synthesizer turns ranked chunks into a reply string.
	Synthesizer answer.Synthesizer

	// Store backs the health check.
	Store store.Store

	// Logger is the configured zap logger.
	Logger *zap.Logger
}

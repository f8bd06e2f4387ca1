// Package extract converts uploaded document bytes into plain text.
//
// The ingestion pipeline treats extraction as an opaque collaborator: it
// consumes a string and never inspects the source format.
package extract

import (
	"context"
	"errors"
)

// ErrExtraction is returned when no text can be extracted from the input.
var ErrExtraction = errors.New("text extraction failed")

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

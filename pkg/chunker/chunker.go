// Package chunker splits extracted document text into ordered, overlapping
// windows for embedding.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the chunk size and overlap cannot
// produce a terminating scan. This is a programming error, not a condition
// a caller should retry.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Chunk splits text into a deterministic sequence of windows of at most
// size runes, where consecutive windows share overlap runes. The final
// window may be shorter than size. Empty text produces no chunks.
//
// Blank or whitespace-only windows are legal outputs; filtering them is
// the caller's responsibility.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfig, overlap)
	}
	if size-overlap <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d", ErrInvalidConfig, size, overlap)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []string
	for start := 0; ; start += stride {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks, nil
		}
		chunks = append(chunks, string(runes[start:end]))
	}
}

package extract

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// PlainText passes UTF-8 text bytes through unchanged. Used for .txt drops
// and as a test double for the PDF extractor.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Extract validates the bytes are UTF-8 and returns them as a string.
func (p *PlainText) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: input is not valid utf-8", ErrExtraction)
	}
	return string(data), nil
}

var _ Extractor = (*PlainText)(nil)

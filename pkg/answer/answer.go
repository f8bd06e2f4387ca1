// Package answer synthesizes a user-facing answer from ranked chunks.
package answer

import (
	"context"
	"strings"

	"github.com/papercomputeco/stacks/pkg/retrieval"
)

// Synthesizer turns a question and its ranked chunks into an answer string.
// A model-backed implementation can replace Concat without touching the
// retrieval pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []retrieval.Result) (string, error)
}

// Concat is the default synthesizer: it presents the ranked chunk texts
// verbatim, most relevant first.
type Concat struct{}

// NewConcat creates the concatenation synthesizer.
func NewConcat() *Concat {
	return &Concat{}
}

// Synthesize joins the ranked chunk texts into a single response.
func (c *Concat) Synthesize(_ context.Context, _ string, chunks []retrieval.Result) (string, error) {
	if len(chunks) == 0 {
		return "I couldn't find any relevant information in the document to answer your question.", nil
	}

	texts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		texts = append(texts, ch.ChunkText)
	}

	return "Based on the document, here's some relevant information:\n" + strings.Join(texts, "\n\n"), nil
}

var _ Synthesizer = (*Concat)(nil)

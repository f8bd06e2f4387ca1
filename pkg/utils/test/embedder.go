package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// It is safe for concurrent use, matching the shared-embedder contract.
type MockEmbedder struct {
	mu sync.Mutex

	// Embeddings maps input text to a canned embedding
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Calls records every non-blank input
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	m.Calls = append(m.Calls, text)

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default unit-length embedding for any text
	return []float32{0.6, 0.8, 0}, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/embeddings/lazy"
	"github.com/papercomputeco/stacks/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Logger       *zap.Logger
}

// NewEmbedder builds the shared lazily-initialized embedder for the
// configured provider. The backend itself is not contacted until the
// first embedding is requested.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			return ollama.NewEmbedder(ollama.EmbedderConfig{
				BaseURL: o.TargetURL,
				Model:   o.Model,
			})
		}, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

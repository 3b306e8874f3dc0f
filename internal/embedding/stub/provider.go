// Package stub provides a deterministic embedding provider for tests and
// local boot without a configured embedding provider API key.
package stub

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// Provider generates deterministic embeddings from a text hash — not a
// learned representation, but stable across calls, which is what the
// retrieval and workflow-memory tests need.
type Provider struct {
	dimensions int
}

// NewProvider creates a stub provider producing vectors of the given
// dimension.
func NewProvider(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 1536
	}

	return &Provider{dimensions: dimensions}
}

// CreateEmbedding generates a deterministic embedding from the text's SHA-256
// hash, cycling hash bytes to fill the configured dimension.
func (p *Provider) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("stub: input text is empty")
	}

	hash := sha256.Sum256([]byte(text))
	out := make([]float32, p.dimensions)

	for i := range out {
		out[i] = (float32(hash[i%len(hash)]) / 127.5) - 1.0
	}

	return out, nil
}

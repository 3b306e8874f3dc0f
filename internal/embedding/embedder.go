// Package embedding wraps an external text-to-vector provider, exposing the
// single- and batch-encode operations from spec §4.1. It holds no persistent
// state; the configured provider may cache a singleton model handle.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/pkg/vector"
)

// maxBatchConcurrency bounds how many provider calls EmbedBatch runs at once,
// so a large batch doesn't open unbounded concurrent connections to the
// embedding provider.
const maxBatchConcurrency = 8

// Provider is the external embed(text) -> vector function (spec §4.1),
// implemented by the openai, googleai, and stub adapters.
type Provider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Embedder is the Embedder component (spec §2 item 1, §4.1). Fixed output
// dimension D; pure wrapper around Provider, no persistent state of its own.
type Embedder struct {
	provider Provider
	dim      int
}

// New creates an Embedder backed by provider, expecting vectors of dimension
// dim.
func New(provider Provider, dim int) *Embedder {
	return &Embedder{provider: provider, dim: dim}
}

// Embed returns the L2-normalized embedding of text. Empty input is rejected
// as InvalidInput; provider failures surface as ProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, apperrors.NewInvalidInputError("text", "embed input must not be empty")
	}

	vec, err := e.provider.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, apperrors.NewProviderError("embedding", "embed failed", err)
	}

	if e.dim > 0 && len(vec) != e.dim {
		return nil, apperrors.NewProviderError("embedding", fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(vec), e.dim), nil)
	}

	vector.NormalizeL2(vec)

	return vec, nil
}

// EmbedBatch embeds each text, fanning out with a bounded number of
// concurrent provider calls. Results preserve input order; the first error
// encountered aborts the remaining work and is returned.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return err
			}

			out[i] = vec

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Cosine returns the cosine similarity of two embeddings (spec §4.1 cosine).
func Cosine(a, b []float32) float64 {
	return vector.CosineSimilarity(a, b)
}

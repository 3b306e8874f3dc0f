// Package googleai provides a thin wrapper around the Google Gen AI SDK for
// embeddings (Gemini API) — an alternative embedding provider selectable via
// EMBEDDING_PROVIDER=google.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("googleai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const (
	defaultDimension = 1536
	defaultModel     = "gemini-embedding-001"
)

// Provider calls the Gemini embeddings API via the Google Gen AI SDK.
type Provider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithDimensions sets the requested embedding dimension.
func WithDimensions(dim int) ProviderOption {
	return func(p *Provider) {
		p.dimensions = dim
	}
}

// WithModel sets the embedding model name. Empty uses the default.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// NewProvider creates a Gemini embeddings provider.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai provider: %w", err)
	}

	p := &Provider{
		client:     genaiClient,
		model:      defaultModel,
		dimensions: defaultDimension,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// CreateEmbedding returns the embedding vector for the given text using the
// configured model.
func (p *Provider) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if p.dimensions <= 0 || p.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	model := p.model
	if model == "" {
		model = defaultModel
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	//nolint:gosec // G115: p.dimensions is bounded above by math.MaxInt32
	dimInt32 := int32(p.dimensions)

	resp, err := p.client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dimInt32,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Embeddings[0].Values
	if len(emb) != p.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), p.dimensions)
	}

	out := make([]float32, len(emb))
	copy(out, emb)

	return out, nil
}

// Package generator implements the Generator component (spec §4.6): it
// assembles a prompt from retrieved chunks, calls the configured LLM
// provider with bounded retry, and returns answer text plus a step trace.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/formbricks/ragcore/internal/apperrors"
	"github.com/formbricks/ragcore/internal/models"
)

// Provider is the external LLM text-generation service (spec §1 Non-goals:
// "the LLM text-generation service — external oracle accessed via an
// abstract provider interface").
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RetrievedChunk is the minimal chunk shape the prompt builder needs —
// content plus provenance — independent of the retrieval package's richer
// Result type.
type RetrievedChunk struct {
	Repo    string
	Path    string
	Section string
	Content string
}

// Generator builds prompts and drives Provider with bounded exponential
// backoff retry (spec §4.6 failure semantics).
type Generator struct {
	provider Provider
	maxTries int
}

// New creates a Generator. maxRetries is R_gen: on transient provider
// failure, Generate retries up to maxRetries additional times.
func New(provider Provider, maxRetries int) *Generator {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Generator{provider: provider, maxTries: maxRetries + 1}
}

// BuildPrompt assembles the prompt: system role statement, enumerated
// retrieved chunks with provenance and content, then the echoed query (spec
// §4.6 (a)(b)(c)).
func BuildPrompt(query string, chunks []RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("You are a documentation assistant. Answer the user's question ")
	b.WriteString("using only the retrieved excerpts below. Cite the source path ")
	b.WriteString("when relevant and say so plainly if the excerpts don't cover the question.\n\n")

	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] %s/%s#%s\n%s\n\n", i+1, c.Repo, c.Path, c.Section, c.Content)
	}

	b.WriteString("Question: ")
	b.WriteString(query)

	return b.String()
}

// Generate builds the prompt and calls the provider, retrying transient
// failures with exponential backoff up to R_gen times. On persistent
// failure it returns a ProviderError; the caller (Ask Orchestrator) must not
// write a Session Log entry for this request (spec §4.6, §4.9).
func (g *Generator) Generate(ctx context.Context, query string, chunks []RetrievedChunk, tracer StepRecorder) (string, error) {
	prompt := BuildPrompt(query, chunks)

	var answer string

	attempt := 0

	operation := func() (err error) {
		attempt++

		answer, err = g.provider.Generate(ctx, prompt)
		if err != nil && tracer != nil {
			tracer.AddStep(models.PhaseGenerate, fmt.Sprintf("generate attempt %d failed: %v", attempt, err))
		}

		return err
	}

	var bo backoff.BackOff = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.maxTries-1))
	bo = backoff.WithContext(bo, ctx)

	if err := backoff.Retry(operation, bo); err != nil {
		return "", apperrors.NewProviderError("generator", "generation failed after retries", err)
	}

	return answer, nil
}

// StepRecorder is the subset of tracer.Tracer the generator needs, kept
// narrow to avoid an import cycle between generator and tracer.
type StepRecorder interface {
	AddStep(phase models.Phase, description string)
}

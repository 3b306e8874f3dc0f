// Package stub implements a deterministic generator.Provider with no
// external dependency, for tests and default boot without an LLM API key.
package stub

import (
	"context"
	"fmt"
	"strings"
)

// Provider echoes a deterministic answer built from the prompt, so tests can
// assert on generation without a live LLM.
type Provider struct{}

// NewProvider creates a deterministic stub generation provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Generate returns a fixed-shape answer derived from the prompt's question
// line, so repeated calls with the same prompt are reproducible.
func (p *Provider) Generate(_ context.Context, prompt string) (string, error) {
	question := prompt

	if idx := strings.LastIndex(prompt, "Question: "); idx != -1 {
		question = prompt[idx+len("Question: "):]
	}

	return fmt.Sprintf("stub answer for: %s", strings.TrimSpace(question)), nil
}

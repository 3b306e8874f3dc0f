package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBuildPromptIncludesChunksAndQuestion(t *testing.T) {
	chunks := []RetrievedChunk{
		{Repo: "formbricks", Path: "docs/setup.md", Section: "install", Content: "run npm install"},
	}

	prompt := BuildPrompt("how do I install this?", chunks)

	if !strings.Contains(prompt, "formbricks/docs/setup.md#install") {
		t.Errorf("expected prompt to contain chunk provenance, got: %s", prompt)
	}

	if !strings.Contains(prompt, "run npm install") {
		t.Errorf("expected prompt to contain chunk content")
	}

	if !strings.Contains(prompt, "Question: how do I install this?") {
		t.Errorf("expected prompt to contain the question")
	}
}

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient provider error")
	}

	return "final answer", nil
}

func TestGenerateRetriesUntilSuccess(t *testing.T) {
	p := &flakyProvider{failures: 2}
	g := New(p, 3)

	answer, err := g.Generate(context.Background(), "q", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer != "final answer" {
		t.Errorf("expected final answer, got %q", answer)
	}

	if p.calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", p.calls)
	}
}

func TestGenerateFailsAfterExhaustingRetries(t *testing.T) {
	p := &flakyProvider{failures: 10}
	g := New(p, 2)

	_, err := g.Generate(context.Background(), "q", nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	if p.calls != 3 {
		t.Errorf("expected 3 calls (1 initial + 2 retries), got %d", p.calls)
	}
}

func TestGenerateSucceedsOnFirstTryNoRetries(t *testing.T) {
	p := &flakyProvider{failures: 0}
	g := New(p, 0)

	answer, err := g.Generate(context.Background(), "q", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer != "final answer" {
		t.Errorf("expected final answer, got %q", answer)
	}

	if p.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", p.calls)
	}
}

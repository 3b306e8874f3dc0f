package workflow

import (
	"strings"
	"testing"

	"github.com/formbricks/ragcore/internal/generator"
)

func TestBuildSummaryGroupsChunksByRepo(t *testing.T) {
	chunks := []generator.RetrievedChunk{
		{Repo: "formbricks", Path: "docs/setup.md", Section: "install"},
		{Repo: "formbricks", Path: "docs/setup.md", Section: "config"},
		{Repo: "ragcore", Path: "readme.md", Section: "intro"},
	}

	summary := BuildSummary("how do I install this?", chunks, "stub")

	if !strings.Contains(summary, "Query: how do I install this?") {
		t.Errorf("expected summary to contain query")
	}

	if !strings.Contains(summary, "Retrieved 3 chunks from:") {
		t.Errorf("expected summary to contain chunk count, got: %s", summary)
	}

	if !strings.Contains(summary, "- formbricks: docs/setup.md") {
		t.Errorf("expected formbricks repo line deduplicated by path, got: %s", summary)
	}

	if !strings.Contains(summary, "- ragcore: readme.md") {
		t.Errorf("expected ragcore repo line, got: %s", summary)
	}

	if !strings.Contains(summary, "Generated using stub") {
		t.Errorf("expected provider line, got: %s", summary)
	}
}

func TestBuildSummaryHandlesNoChunks(t *testing.T) {
	summary := BuildSummary("empty query", nil, "")

	if !strings.Contains(summary, "Retrieved 0 chunks from:") {
		t.Errorf("expected zero-chunk summary, got: %s", summary)
	}
}

package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/formbricks/ragcore/internal/generator"
)

// BuildSummary composes a natural-language description of one session's
// reasoning chain — the text that gets embedded as the workflow memory's
// summary vector. Chunks are grouped by repo, repos in name order, each
// repo's distinct paths listed once in sorted order.
func BuildSummary(query string, chunks []generator.RetrievedChunk, provider string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Query: %s\n", query)
	fmt.Fprintf(&b, "Retrieved %d chunks from:\n", len(chunks))

	repoPaths := make(map[string]map[string]struct{})

	var repoOrder []string

	for _, c := range chunks {
		if _, ok := repoPaths[c.Repo]; !ok {
			repoPaths[c.Repo] = make(map[string]struct{})
			repoOrder = append(repoOrder, c.Repo)
		}

		repoPaths[c.Repo][c.Path] = struct{}{}
	}

	sort.Strings(repoOrder)

	for _, repo := range repoOrder {
		paths := make([]string, 0, len(repoPaths[repo]))
		for p := range repoPaths[repo] {
			paths = append(paths, p)
		}

		sort.Strings(paths)
		fmt.Fprintf(&b, "- %s: %s\n", repo, strings.Join(paths, ", "))
	}

	if provider != "" {
		fmt.Fprintf(&b, "Generated using %s", provider)
	}

	return strings.TrimRight(b.String(), "\n")
}

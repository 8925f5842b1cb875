// Package review implements the pull request review job: it retrieves
// codebase context from the vector index, generates an AI review, and
// posts it back to the pull request.
package review

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/infrastructure/provider"
)

// diffEmbedLimit caps how much of the diff is embedded for retrieval.
const diffEmbedLimit = 3000

// filteredTopK is the query size when filtering results to changed files.
const filteredTopK = 20

// fallbackTopK is the query size for the unfiltered semantic fallback.
const fallbackTopK = 5

var (
	diffHeaderPattern = regexp.MustCompile(`(?m)^diff --git a/(.*?) b/`)
	diffPathPattern   = regexp.MustCompile(`(?m)^(?:\+\+\+|---) [ab]/(.*)$`)
)

// ContextRetriever finds the indexed chunks most relevant to a diff.
type ContextRetriever struct {
	vectors  search.VectorStore
	embedder provider.Embedder
	logger   *slog.Logger
}

// NewContextRetriever creates a ContextRetriever.
func NewContextRetriever(vectors search.VectorStore, embedder provider.Embedder, logger *slog.Logger) ContextRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return ContextRetriever{vectors: vectors, embedder: embedder, logger: logger}
}

// Retrieve returns context for a diff as concatenated chunk contents.
// Chunks from the changed files are preferred; when none are indexed the
// retrieval falls back to a plain semantic search. Retrieval failures
// degrade to an empty context rather than failing the review.
func (r ContextRetriever) Retrieve(ctx context.Context, repositoryID int64, diff string) string {
	changed := ChangedFiles(diff)
	logger := r.logger.With(slog.Int64("repository_id", repositoryID))

	if len(changed) == 0 {
		return r.semanticSearch(ctx, repositoryID, diff, fallbackTopK, logger)
	}

	matches, err := r.query(ctx, repositoryID, diff, filteredTopK, changed...)
	if err != nil {
		logger.Warn("context retrieval failed", slog.String("error", err.Error()))
		return ""
	}

	var contexts []string
	for _, m := range matches {
		if content := strings.TrimSpace(m.Metadata().Content); content != "" {
			contexts = append(contexts, content)
		}
	}

	if len(contexts) == 0 {
		return r.semanticSearch(ctx, repositoryID, diff, fallbackTopK, logger)
	}

	logger.Debug("context retrieved",
		slog.Int("changed_files", len(changed)),
		slog.Int("chunks", len(contexts)),
	)
	return strings.Join(contexts, "\n\n")
}

func (r ContextRetriever) semanticSearch(ctx context.Context, repositoryID int64, diff string, topK int, logger *slog.Logger) string {
	matches, err := r.query(ctx, repositoryID, diff, topK)
	if err != nil {
		logger.Warn("semantic search failed", slog.String("error", err.Error()))
		return ""
	}

	var contexts []string
	for _, m := range matches {
		if content := strings.TrimSpace(m.Metadata().Content); content != "" {
			contexts = append(contexts, content)
		}
	}
	return strings.Join(contexts, "\n\n")
}

func (r ContextRetriever) query(ctx context.Context, repositoryID int64, diff string, topK int, paths ...string) ([]search.Match, error) {
	text := diff
	if len(text) > diffEmbedLimit {
		text = text[:diffEmbedLimit]
	}

	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return r.vectors.Query(ctx, repositoryID, embedding, topK, paths...)
}

// ChangedFiles extracts the file paths touched by a unified diff from
// its "diff --git" headers and "+++/---" lines.
func ChangedFiles(diff string) []string {
	seen := make(map[string]struct{})
	var paths []string

	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" || path == "/dev/null" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	for _, m := range diffHeaderPattern.FindAllStringSubmatch(diff, -1) {
		add(m[1])
	}
	for _, m := range diffPathPattern.FindAllStringSubmatch(diff, -1) {
		add(m[1])
	}
	return paths
}

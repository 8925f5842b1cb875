// Package indexing implements the repository indexing job: it walks the
// repository tree, chunks file content, embeds the chunks, and writes
// them to the vector index.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/infrastructure/chunking"
	"github.com/codeowl/codeowl/infrastructure/github"
	"github.com/codeowl/codeowl/infrastructure/provider"
)

// fileBatchSize is the number of files fetched and embedded per round.
const fileBatchSize = 10

// maxFileSize is the per-file content ceiling; larger blobs are skipped.
const maxFileSize = 1 << 20

// ignoredDirectories are path prefixes never worth indexing.
var ignoredDirectories = []string{
	"node_modules",
	".git",
	".vscode",
	"dist",
	"build",
	"coverage",
}

// ignoredExtensions are file suffixes never worth indexing.
var ignoredExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".pdf", ".zip", ".gz", ".exe", ".bin",
	".tsbuildinfo", ".lock",
}

// ErrMissingPayload indicates a task payload without a repository reference.
var ErrMissingPayload = errors.New("task payload missing repositoryId")

// IndexRepository rebuilds the vector index for one repository.
type IndexRepository struct {
	repos    repository.Store
	users    repository.UserStore
	vectors  search.VectorStore
	gh       *github.Client
	embedder provider.Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexRepository creates an IndexRepository handler.
func NewIndexRepository(
	repos repository.Store,
	users repository.UserStore,
	vectors search.VectorStore,
	gh *github.Client,
	embedder provider.Embedder,
	logger *slog.Logger,
) *IndexRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRepository{
		repos:    repos,
		users:    users,
		vectors:  vectors,
		gh:       gh,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute runs the indexing job. Per-batch failures are counted rather
// than aborting the run; the job only fails outright when the tree
// itself cannot be fetched or a store write fails.
func (h *IndexRepository) Execute(ctx context.Context, payload map[string]any) error {
	repositoryID, ok := payloadInt64(payload, "repositoryId")
	if !ok {
		return ErrMissingPayload
	}

	repo, err := h.repos.Get(ctx, repositoryID)
	if err != nil {
		return err
	}

	user, err := h.users.Get(ctx, repo.UserID())
	if err != nil {
		return err
	}
	if user.GithubToken() == "" {
		return fmt.Errorf("user %d has no github token", user.ID())
	}

	repo, err = h.repos.SaveIndexingState(ctx, repo.WithIndexingStarted())
	if err != nil {
		return err
	}

	start := h.now()
	logger := h.logger.With(
		slog.Int64("repository_id", repo.ID()),
		slog.String("full_name", repo.FullName()),
	)
	logger.Info("indexing started")

	metrics, err := h.index(ctx, repo, user.GithubToken(), logger)
	if err != nil {
		logger.Error("indexing failed", slog.String("error", err.Error()))
		if _, saveErr := h.repos.SaveIndexingState(ctx, repo.WithIndexingFailed()); saveErr != nil {
			logger.Error("failed to record indexing failure", slog.String("error", saveErr.Error()))
		}
		return err
	}

	metrics.DurationMillis = time.Since(start).Milliseconds()
	if _, err := h.repos.SaveIndexingState(ctx, repo.WithIndexingCompleted(metrics, h.now())); err != nil {
		return err
	}

	logger.Info("indexing completed",
		slog.Int("files", metrics.FilesProcessed),
		slog.Int("chunks", metrics.ChunksCreated),
		slog.Int("errors", metrics.Errors),
		slog.Int64("duration_ms", metrics.DurationMillis),
	)
	return nil
}

func (h *IndexRepository) index(
	ctx context.Context,
	repo repository.Repository,
	token string,
	logger *slog.Logger,
) (repository.IndexingMetrics, error) {
	var metrics repository.IndexingMetrics

	// Stale vectors from the previous run must not survive a re-index.
	if err := h.vectors.DeleteAll(ctx, repo.ID()); err != nil {
		return metrics, fmt.Errorf("clear vector namespace: %w", err)
	}

	entries, err := h.gh.FetchRepoTree(ctx, token, repo.Owner(), repo.Name(), repo.DefaultBranch())
	if err != nil {
		return metrics, fmt.Errorf("fetch repository tree: %w", err)
	}

	files := filterIndexable(entries)
	logger.Info("repository tree fetched",
		slog.Int("total", len(entries)),
		slog.Int("indexable", len(files)),
	)

	for batchStart := 0; batchStart < len(files); batchStart += fileBatchSize {
		batch := files[batchStart:min(batchStart+fileBatchSize, len(files))]

		processed, chunks, err := h.indexBatch(ctx, repo, token, batch)
		if err != nil {
			logger.Warn("file batch failed",
				slog.Int("batch_start", batchStart),
				slog.String("error", err.Error()),
			)
			metrics.Errors++
			continue
		}

		metrics.FilesProcessed += processed
		metrics.ChunksCreated += chunks

		progress := (metrics.FilesProcessed * 100) / len(files)
		updated, err := h.repos.SaveIndexingState(ctx, repo.WithIndexingProgress(progress))
		if err != nil {
			return metrics, err
		}
		repo = updated
	}

	return metrics, nil
}

// indexBatch fetches, chunks, embeds, and upserts one batch of files.
func (h *IndexRepository) indexBatch(
	ctx context.Context,
	repo repository.Repository,
	token string,
	batch []github.TreeEntry,
) (processedFiles, createdChunks int, err error) {
	contents, err := h.gh.FetchFileContents(ctx, token, repo.Owner(), repo.Name(), batch)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch file contents: %w", err)
	}

	var chunks []chunking.Chunk
	for _, file := range contents {
		content := strings.TrimSpace(file.Content)
		if content == "" {
			continue
		}
		chunks = append(chunks, chunking.ChunkFile(repo.ID(), file.Path, content)...)
	}

	if len(chunks) == 0 {
		return len(contents), 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content()
	}

	embeddings, err := h.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, 0, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings))
	}

	vectors := make([]search.Vector, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = search.NewVector(chunk.ID(), embeddings[i], search.Metadata{
			RepositoryID: chunk.RepositoryID(),
			FilePath:     chunk.FilePath(),
			ChunkIndex:   chunk.Index(),
			TotalChunks:  chunk.TotalChunks(),
			StartChar:    chunk.StartChar(),
			EndChar:      chunk.EndChar(),
			Content:      chunk.Content(),
		})
	}

	if err := h.vectors.UpsertBatch(ctx, repo.ID(), vectors); err != nil {
		return 0, 0, fmt.Errorf("upsert vectors: %w", err)
	}

	return len(contents), len(chunks), nil
}

// filterIndexable drops ignored directories, ignored extensions,
// oversized files, and files not worth chunking from the tree.
func filterIndexable(entries []github.TreeEntry) []github.TreeEntry {
	files := make([]github.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Path == "" || !indexablePath(entry.Path) {
			continue
		}
		if entry.Size > maxFileSize {
			continue
		}
		if !chunking.ShouldChunk(entry.Path, int(entry.Size)) {
			continue
		}
		files = append(files, entry)
	}
	return files
}

func indexablePath(path string) bool {
	for _, dir := range ignoredDirectories {
		if strings.HasPrefix(path, dir+"/") {
			return false
		}
	}
	for _, ext := range ignoredExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

func payloadInt64(payload map[string]any, key string) (int64, bool) {
	val, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

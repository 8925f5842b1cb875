package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/internal/database"
)

// upsertBatchSize is the number of vectors written per upsert statement.
const upsertBatchSize = 100

// VectorStore implements search.VectorStore on a relational table.
// Embeddings are stored as JSON and similarity search runs in-memory
// over the repository's namespace.
type VectorStore struct {
	db     database.Database
	mapper ChunkEmbeddingMapper
	logger *slog.Logger
}

// NewVectorStore creates a new VectorStore.
func NewVectorStore(db database.Database, logger *slog.Logger) VectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return VectorStore{
		db:     db,
		mapper: ChunkEmbeddingMapper{},
		logger: logger,
	}
}

// UpsertBatch writes vectors idempotently. Re-upserting a vector ID
// overwrites the stored embedding and metadata in place.
func (s VectorStore) UpsertBatch(ctx context.Context, repositoryID int64, vectors []search.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	models := make([]ChunkEmbeddingModel, len(vectors))
	for i, v := range vectors {
		models[i] = s.mapper.ToModel(repositoryID, v)
	}

	return s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vector_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"repository_id", "file_path", "chunk_index", "total_chunks",
				"start_char", "end_char", "content", "embedding",
			}),
		}).CreateInBatches(models, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
		return nil
	})
}

// Query returns up to topK nearest neighbours within the repository's
// namespace, highest similarity first, optionally restricted to the
// given file paths. An empty namespace yields an empty result.
func (s VectorStore) Query(ctx context.Context, repositoryID int64, values []float64, topK int, paths ...string) ([]search.Match, error) {
	if topK <= 0 || len(values) == 0 {
		return []search.Match{}, nil
	}

	query := s.db.Session(ctx).Where("repository_id = ?", repositoryID)
	if len(paths) > 0 {
		query = query.Where("file_path IN ?", paths)
	}

	var models []ChunkEmbeddingModel
	result := query.Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("load vectors: %w", result.Error)
	}

	type scored struct {
		model ChunkEmbeddingModel
		score float64
	}

	candidates := make([]scored, 0, len(models))
	for _, model := range models {
		if len(model.Embedding) == 0 {
			s.logger.Warn("skipping empty embedding", "vector_id", model.VectorID)
			continue
		}
		candidates = append(candidates, scored{
			model: model,
			score: CosineSimilarity(values, model.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	matches := make([]search.Match, topK)
	for i := 0; i < topK; i++ {
		matches[i] = s.mapper.ToMatch(candidates[i].model, candidates[i].score)
	}
	return matches, nil
}

// DeleteAll removes a repository's namespace. Deleting a namespace that
// does not exist is a success.
func (s VectorStore) DeleteAll(ctx context.Context, repositoryID int64) error {
	result := s.db.Session(ctx).
		Where("repository_id = ?", repositoryID).
		Delete(&ChunkEmbeddingModel{})
	if result.Error != nil {
		return fmt.Errorf("delete vectors: %w", result.Error)
	}
	return nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical).
// Returns 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Ensure VectorStore implements the domain interface.
var _ search.VectorStore = VectorStore{}

// Package search provides domain types for the vector index.
package search

import "context"

// Vector is one embedded chunk ready for upsert.
type Vector struct {
	id       string
	values   []float64
	metadata Metadata
}

// Metadata describes the chunk a vector was produced from.
type Metadata struct {
	RepositoryID int64  `json:"repoId"`
	FilePath     string `json:"filePath"`
	ChunkIndex   int    `json:"chunkIndex"`
	TotalChunks  int    `json:"totalChunks"`
	StartChar    int    `json:"startChar"`
	EndChar      int    `json:"endChar"`
	Content      string `json:"content"`
}

// NewVector creates a Vector.
func NewVector(id string, values []float64, metadata Metadata) Vector {
	cp := make([]float64, len(values))
	copy(cp, values)
	return Vector{id: id, values: cp, metadata: metadata}
}

// ID returns the deterministic vector ID.
func (v Vector) ID() string { return v.id }

// Values returns the embedding.
func (v Vector) Values() []float64 { return v.values }

// Metadata returns the chunk metadata.
func (v Vector) Metadata() Metadata { return v.metadata }

// Match is one nearest-neighbour query result.
type Match struct {
	id       string
	score    float64
	metadata Metadata
}

// NewMatch creates a Match.
func NewMatch(id string, score float64, metadata Metadata) Match {
	return Match{id: id, score: score, metadata: metadata}
}

// ID returns the vector ID.
func (m Match) ID() string { return m.id }

// Score returns the cosine similarity score, higher is closer.
func (m Match) Score() float64 { return m.score }

// Metadata returns the chunk metadata.
func (m Match) Metadata() Metadata { return m.metadata }

// VectorStore is a namespaced vector index. The namespace is the
// repository ID: one repository's chunks are never visible to another's
// queries.
type VectorStore interface {
	// UpsertBatch writes vectors idempotently; re-upserting an ID
	// overwrites in place.
	UpsertBatch(ctx context.Context, repositoryID int64, vectors []Vector) error
	// Query returns up to topK nearest neighbours, optionally restricted
	// to the given file paths. An empty namespace yields an empty
	// result, not an error.
	Query(ctx context.Context, repositoryID int64, values []float64, topK int, paths ...string) ([]Match, error)
	// DeleteAll removes a namespace. Deleting a namespace that does not
	// exist is a success.
	DeleteAll(ctx context.Context, repositoryID int64) error
}

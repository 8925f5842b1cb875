// Package dto defines the JSON request and response shapes of the v1 API.
package dto

import (
	"time"

	"github.com/codeowl/codeowl/domain/repository"
)

// ConnectRepositoryRequest is the body of POST /api/v1/repositories.
type ConnectRepositoryRequest struct {
	GithubRepoID  string `json:"githubRepoId"`
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	FullName      string `json:"fullName"`
	DefaultBranch string `json:"defaultBranch"`
	Private       bool   `json:"private"`
}

// IndexingMetrics mirrors the metrics recorded by the last indexing run.
type IndexingMetrics struct {
	FilesProcessed int   `json:"filesProcessed"`
	ChunksCreated  int   `json:"chunksCreated"`
	Errors         int   `json:"errors"`
	DurationMillis int64 `json:"durationMs"`
}

// Repository is the API representation of a connected repository.
type Repository struct {
	ID               int64           `json:"id"`
	GithubRepoID     string          `json:"githubRepoId"`
	Owner            string          `json:"owner"`
	Name             string          `json:"name"`
	FullName         string          `json:"fullName"`
	DefaultBranch    string          `json:"defaultBranch"`
	Private          bool            `json:"private"`
	Indexed          bool            `json:"indexed"`
	IndexingStatus   string          `json:"indexingStatus"`
	IndexingProgress int             `json:"indexingProgress"`
	IndexingMetrics  IndexingMetrics `json:"indexingMetrics"`
	LastIndexedAt    *time.Time      `json:"lastIndexedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// RepositoryResponse wraps a single repository.
type RepositoryResponse struct {
	Data Repository `json:"data"`
}

// RepositoryListResponse wraps a repository listing.
type RepositoryListResponse struct {
	Data []Repository `json:"data"`
}

// RepositoryStatus is the polling shape for indexing progress.
type RepositoryStatus struct {
	ID               int64           `json:"id"`
	IndexingStatus   string          `json:"indexingStatus"`
	IndexingProgress int             `json:"indexingProgress"`
	IndexingMetrics  IndexingMetrics `json:"indexingMetrics"`
	LastIndexedAt    *time.Time      `json:"lastIndexedAt,omitempty"`
}

// RepositoryStatusResponse wraps a status poll.
type RepositoryStatusResponse struct {
	Data RepositoryStatus `json:"data"`
}

// FromRepository converts a domain repository to its API shape.
func FromRepository(r repository.Repository) Repository {
	return Repository{
		ID:               r.ID(),
		GithubRepoID:     r.GithubRepoID(),
		Owner:            r.Owner(),
		Name:             r.Name(),
		FullName:         r.FullName(),
		DefaultBranch:    r.DefaultBranch(),
		Private:          r.Private(),
		Indexed:          r.Indexed(),
		IndexingStatus:   string(r.IndexingStatus()),
		IndexingProgress: r.IndexingProgress(),
		IndexingMetrics:  fromMetrics(r.IndexingMetrics()),
		LastIndexedAt:    r.LastIndexedAt(),
		CreatedAt:        r.CreatedAt(),
	}
}

// StatusFromRepository converts a domain repository to its polling shape.
func StatusFromRepository(r repository.Repository) RepositoryStatus {
	return RepositoryStatus{
		ID:               r.ID(),
		IndexingStatus:   string(r.IndexingStatus()),
		IndexingProgress: r.IndexingProgress(),
		IndexingMetrics:  fromMetrics(r.IndexingMetrics()),
		LastIndexedAt:    r.LastIndexedAt(),
	}
}

func fromMetrics(m repository.IndexingMetrics) IndexingMetrics {
	return IndexingMetrics{
		FilesProcessed: m.FilesProcessed,
		ChunksCreated:  m.ChunksCreated,
		Errors:         m.Errors,
		DurationMillis: m.DurationMillis,
	}
}

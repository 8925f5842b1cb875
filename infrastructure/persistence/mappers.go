package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/domain/search"
	"github.com/codeowl/codeowl/domain/task"
)

// UserMapper maps between domain User and persistence UserModel.
type UserMapper struct{}

// ToDomain converts a UserModel to a domain User.
func (m UserMapper) ToDomain(e UserModel) repository.User {
	return repository.NewUserWithID(
		e.ID,
		e.Name,
		e.Email,
		e.GithubID,
		e.GithubToken,
		repository.Plan(e.Plan),
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain User to a UserModel.
func (m UserMapper) ToModel(u repository.User) UserModel {
	return UserModel{
		ID:          u.ID(),
		Name:        u.Name(),
		Email:       u.Email(),
		GithubID:    u.GithubID(),
		GithubToken: u.GithubToken(),
		Plan:        string(u.Plan()),
		CreatedAt:   u.CreatedAt(),
		UpdatedAt:   u.UpdatedAt(),
	}
}

// RepositoryMapper maps between domain Repository and persistence RepositoryModel.
type RepositoryMapper struct{}

// ToDomain converts a RepositoryModel to a domain Repository.
func (m RepositoryMapper) ToDomain(e RepositoryModel) repository.Repository {
	var metrics repository.IndexingMetrics
	if len(e.IndexingMetrics) > 0 {
		// A corrupt metrics blob degrades to zero metrics rather than
		// failing the read.
		_ = json.Unmarshal(e.IndexingMetrics, &metrics)
	}

	return repository.NewWithID(
		e.ID,
		e.UserID,
		e.GithubRepoID,
		e.Owner,
		e.Name,
		e.FullName,
		e.DefaultBranch,
		e.Private,
		e.Connected,
		e.WebhookID,
		e.Indexed,
		repository.IndexingStatus(e.IndexingStatus),
		e.IndexingProgress,
		metrics,
		e.LastIndexedAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Repository to a RepositoryModel.
func (m RepositoryMapper) ToModel(r repository.Repository) (RepositoryModel, error) {
	metrics, err := json.Marshal(r.IndexingMetrics())
	if err != nil {
		return RepositoryModel{}, fmt.Errorf("marshal indexing metrics: %w", err)
	}

	return RepositoryModel{
		ID:               r.ID(),
		UserID:           r.UserID(),
		GithubRepoID:     r.GithubRepoID(),
		Owner:            r.Owner(),
		Name:             r.Name(),
		FullName:         r.FullName(),
		DefaultBranch:    r.DefaultBranch(),
		Private:          r.Private(),
		Connected:        r.Connected(),
		WebhookID:        r.WebhookID(),
		Indexed:          r.Indexed(),
		IndexingStatus:   string(r.IndexingStatus()),
		IndexingProgress: r.IndexingProgress(),
		IndexingMetrics:  metrics,
		LastIndexedAt:    r.LastIndexedAt(),
		CreatedAt:        r.CreatedAt(),
		UpdatedAt:        r.UpdatedAt(),
	}, nil
}

// PullRequestMapper maps between domain PullRequest and persistence PullRequestModel.
type PullRequestMapper struct{}

// ToDomain converts a PullRequestModel to a domain PullRequest.
func (m PullRequestMapper) ToDomain(e PullRequestModel) review.PullRequest {
	return review.NewPullRequestWithID(
		e.ID,
		e.RepositoryID,
		e.Number,
		e.Title,
		e.Author,
		e.State,
		e.HTMLURL,
		review.PullRequestStatus(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain PullRequest to a PullRequestModel.
func (m PullRequestMapper) ToModel(p review.PullRequest) PullRequestModel {
	return PullRequestModel{
		ID:           p.ID(),
		RepositoryID: p.RepositoryID(),
		Number:       p.Number(),
		Title:        p.Title(),
		Author:       p.Author(),
		State:        p.State(),
		HTMLURL:      p.HTMLURL(),
		Status:       string(p.Status()),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

// ReviewMapper maps between domain Review and persistence ReviewModel.
type ReviewMapper struct{}

// ToDomain converts a ReviewModel to a domain Review.
func (m ReviewMapper) ToDomain(e ReviewModel) review.Review {
	var summary review.Summary
	var stats review.Stats
	var sections review.Sections
	if len(e.Summary) > 0 {
		_ = json.Unmarshal(e.Summary, &summary)
	}
	if len(e.Stats) > 0 {
		_ = json.Unmarshal(e.Stats, &stats)
	}
	if len(e.Sections) > 0 {
		_ = json.Unmarshal(e.Sections, &sections)
	}

	return review.NewReviewWithID(
		e.ID,
		e.PullRequestID,
		e.RepositoryID,
		e.UserID,
		e.Content,
		summary,
		stats,
		sections,
		e.AIModel,
		review.ReviewStatus(e.Status),
		e.CommentURL,
		e.CreatedAt,
	)
}

// ToModel converts a domain Review to a ReviewModel.
func (m ReviewMapper) ToModel(r review.Review) (ReviewModel, error) {
	summary, err := json.Marshal(r.Summary())
	if err != nil {
		return ReviewModel{}, fmt.Errorf("marshal review summary: %w", err)
	}
	stats, err := json.Marshal(r.Stats())
	if err != nil {
		return ReviewModel{}, fmt.Errorf("marshal review stats: %w", err)
	}
	sections, err := json.Marshal(r.Sections())
	if err != nil {
		return ReviewModel{}, fmt.Errorf("marshal review sections: %w", err)
	}

	return ReviewModel{
		ID:            r.ID(),
		PullRequestID: r.PullRequestID(),
		RepositoryID:  r.RepositoryID(),
		UserID:        r.UserID(),
		Content:       r.Content(),
		Summary:       summary,
		Stats:         stats,
		Sections:      sections,
		AIModel:       r.AIModel(),
		Status:        string(r.Status()),
		CommentURL:    r.CommentURL(),
		CreatedAt:     r.CreatedAt(),
	}, nil
}

// TaskMapper maps between domain Task and persistence TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (m TaskMapper) ToDomain(e TaskModel) task.Task {
	var payload map[string]any
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}

	return task.NewWithID(
		e.ID,
		e.DedupKey,
		task.Operation(e.Operation),
		e.Priority,
		payload,
		e.Attempts,
		e.NotBefore,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a domain Task to a TaskModel.
func (m TaskMapper) ToModel(t task.Task) (TaskModel, error) {
	payload, err := t.PayloadJSON()
	if err != nil {
		return TaskModel{}, fmt.Errorf("marshal task payload: %w", err)
	}

	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Operation: t.Operation().String(),
		Priority:  t.Priority(),
		Payload:   payload,
		Attempts:  t.Attempts(),
		NotBefore: t.NotBefore(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}, nil
}

// ChunkEmbeddingMapper maps between search.Vector and ChunkEmbeddingModel.
type ChunkEmbeddingMapper struct{}

// ToModel converts a search.Vector to a ChunkEmbeddingModel.
func (m ChunkEmbeddingMapper) ToModel(repositoryID int64, v search.Vector) ChunkEmbeddingModel {
	values := v.Values()
	embedding := make(Float64Slice, len(values))
	copy(embedding, values)

	md := v.Metadata()
	return ChunkEmbeddingModel{
		VectorID:     v.ID(),
		RepositoryID: repositoryID,
		FilePath:     md.FilePath,
		ChunkIndex:   md.ChunkIndex,
		TotalChunks:  md.TotalChunks,
		StartChar:    md.StartChar,
		EndChar:      md.EndChar,
		Content:      md.Content,
		Embedding:    embedding,
	}
}

// ToMatch converts a ChunkEmbeddingModel and its similarity score to a search.Match.
func (m ChunkEmbeddingMapper) ToMatch(e ChunkEmbeddingModel, score float64) search.Match {
	return search.NewMatch(e.VectorID, score, search.Metadata{
		RepositoryID: e.RepositoryID,
		FilePath:     e.FilePath,
		ChunkIndex:   e.ChunkIndex,
		TotalChunks:  e.TotalChunks,
		StartChar:    e.StartChar,
		EndChar:      e.EndChar,
		Content:      e.Content,
	})
}

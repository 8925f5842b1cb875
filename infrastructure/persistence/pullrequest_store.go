package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/internal/database"
)

// PullRequestStore implements review.PullRequestStore using GORM.
type PullRequestStore struct {
	db     database.Database
	mapper PullRequestMapper
}

// NewPullRequestStore creates a new PullRequestStore.
func NewPullRequestStore(db database.Database) PullRequestStore {
	return PullRequestStore{
		db:     db,
		mapper: PullRequestMapper{},
	}
}

// Get retrieves a pull request by ID.
func (s PullRequestStore) Get(ctx context.Context, id int64) (review.PullRequest, error) {
	var model PullRequestModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return review.PullRequest{}, fmt.Errorf("%w: pull request id %d", database.ErrNotFound, id)
		}
		return review.PullRequest{}, fmt.Errorf("get pull request: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindByRepository retrieves all pull requests for a repository, newest first.
func (s PullRequestStore) FindByRepository(ctx context.Context, repositoryID int64) ([]review.PullRequest, error) {
	var models []PullRequestModel
	result := s.db.Session(ctx).
		Where("repository_id = ?", repositoryID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find pull requests by repository: %w", result.Error)
	}

	prs := make([]review.PullRequest, len(models))
	for i, model := range models {
		prs[i] = s.mapper.ToDomain(model)
	}
	return prs, nil
}

// Save creates or updates a pull request.
func (s PullRequestStore) Save(ctx context.Context, pr review.PullRequest) (review.PullRequest, error) {
	model := s.mapper.ToModel(pr)

	var result *gorm.DB
	if pr.ID() == 0 {
		result = s.db.Session(ctx).Create(&model)
	} else {
		result = s.db.Session(ctx).Save(&model)
	}
	if result.Error != nil {
		return review.PullRequest{}, fmt.Errorf("save pull request: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// Ensure PullRequestStore implements the domain interface.
var _ review.PullRequestStore = PullRequestStore{}

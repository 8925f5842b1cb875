package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/internal/database"
)

// RepositoryStore implements repository.Store using GORM.
type RepositoryStore struct {
	db     database.Database
	mapper RepositoryMapper
}

// NewRepositoryStore creates a new RepositoryStore.
func NewRepositoryStore(db database.Database) RepositoryStore {
	return RepositoryStore{
		db:     db,
		mapper: RepositoryMapper{},
	}
}

// Get retrieves a repository by ID.
func (s RepositoryStore) Get(ctx context.Context, id int64) (repository.Repository, error) {
	var model RepositoryModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return repository.Repository{}, fmt.Errorf("%w: repository id %d", database.ErrNotFound, id)
		}
		return repository.Repository{}, fmt.Errorf("get repository: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// GetConnectedByFullName retrieves a connected repository by its "owner/name".
func (s RepositoryStore) GetConnectedByFullName(ctx context.Context, fullName string) (repository.Repository, error) {
	var model RepositoryModel
	result := s.db.Session(ctx).
		Where("full_name = ? AND connected = ?", fullName, true).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return repository.Repository{}, fmt.Errorf("%w: repository %s", database.ErrNotFound, fullName)
		}
		return repository.Repository{}, fmt.Errorf("get repository by full name: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindByUser retrieves all repositories connected by a user, newest first.
func (s RepositoryStore) FindByUser(ctx context.Context, userID int64) ([]repository.Repository, error) {
	var models []RepositoryModel
	result := s.db.Session(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find repositories by user: %w", result.Error)
	}

	repos := make([]repository.Repository, len(models))
	for i, model := range models {
		repos[i] = s.mapper.ToDomain(model)
	}
	return repos, nil
}

// CountByUser returns how many repositories a user has connected.
func (s RepositoryStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	result := s.db.Session(ctx).Model(&RepositoryModel{}).
		Where("user_id = ? AND connected = ?", userID, true).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count repositories by user: %w", result.Error)
	}
	return count, nil
}

// ExistsForUser checks whether a user has already connected the host repository.
func (s RepositoryStore) ExistsForUser(ctx context.Context, userID int64, githubRepoID string) (bool, error) {
	var count int64
	result := s.db.Session(ctx).Model(&RepositoryModel{}).
		Where("user_id = ? AND github_repo_id = ? AND connected = ?", userID, githubRepoID, true).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("check repository exists: %w", result.Error)
	}
	return count > 0, nil
}

// Save creates or updates a repository.
func (s RepositoryStore) Save(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	model, err := s.mapper.ToModel(repo)
	if err != nil {
		return repository.Repository{}, err
	}

	var result *gorm.DB
	if repo.ID() == 0 {
		result = s.db.Session(ctx).Create(&model)
	} else {
		result = s.db.Session(ctx).Save(&model)
	}
	if result.Error != nil {
		return repository.Repository{}, fmt.Errorf("save repository: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// SaveIndexingState updates only the indexing lifecycle columns.
// A concurrent webhook write-back on the same row survives the update.
func (s RepositoryStore) SaveIndexingState(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	model, err := s.mapper.ToModel(repo)
	if err != nil {
		return repository.Repository{}, err
	}

	result := s.db.Session(ctx).Model(&RepositoryModel{ID: model.ID}).
		Select("indexed", "indexing_status", "indexing_progress", "indexing_metrics", "last_indexed_at").
		Updates(&model)
	if result.Error != nil {
		return repository.Repository{}, fmt.Errorf("save indexing state: %w", result.Error)
	}
	return repo, nil
}

// SaveWebhookID updates only the webhook id column.
func (s RepositoryStore) SaveWebhookID(ctx context.Context, repositoryID int64, webhookID string) error {
	result := s.db.Session(ctx).Model(&RepositoryModel{}).
		Where("id = ?", repositoryID).
		Update("webhook_id", webhookID)
	if result.Error != nil {
		return fmt.Errorf("save webhook id: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: repository id %d", database.ErrNotFound, repositoryID)
	}
	return nil
}

// Delete removes a repository.
func (s RepositoryStore) Delete(ctx context.Context, repo repository.Repository) error {
	result := s.db.Session(ctx).Delete(&RepositoryModel{}, repo.ID())
	if result.Error != nil {
		return fmt.Errorf("delete repository: %w", result.Error)
	}
	return nil
}

// Ensure RepositoryStore implements the domain interface.
var _ repository.Store = RepositoryStore{}

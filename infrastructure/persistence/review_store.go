package persistence

import (
	"context"
	"fmt"

	"github.com/codeowl/codeowl/domain/review"
	"github.com/codeowl/codeowl/internal/database"
)

// ReviewStore implements review.Store using GORM.
type ReviewStore struct {
	db     database.Database
	mapper ReviewMapper
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(db database.Database) ReviewStore {
	return ReviewStore{
		db:     db,
		mapper: ReviewMapper{},
	}
}

// Save persists a review.
func (s ReviewStore) Save(ctx context.Context, r review.Review) (review.Review, error) {
	model, err := s.mapper.ToModel(r)
	if err != nil {
		return review.Review{}, err
	}

	var result = s.db.Session(ctx).Save(&model)
	if result.Error != nil {
		return review.Review{}, fmt.Errorf("save review: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindByRepository retrieves all reviews for a repository, newest first.
func (s ReviewStore) FindByRepository(ctx context.Context, repositoryID int64) ([]review.Review, error) {
	var models []ReviewModel
	result := s.db.Session(ctx).
		Where("repository_id = ?", repositoryID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find reviews by repository: %w", result.Error)
	}

	reviews := make([]review.Review, len(models))
	for i, model := range models {
		reviews[i] = s.mapper.ToDomain(model)
	}
	return reviews, nil
}

// CountByUser returns how many reviews have been produced for a user.
func (s ReviewStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	result := s.db.Session(ctx).Model(&ReviewModel{}).
		Where("user_id = ?", userID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count reviews by user: %w", result.Error)
	}
	return count, nil
}

// Ensure ReviewStore implements the domain interface.
var _ review.Store = ReviewStore{}

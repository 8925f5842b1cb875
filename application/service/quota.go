package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/domain/review"
)

// Quota errors.
var (
	// ErrRepoLimitReached indicates the free tier repository ceiling is hit.
	ErrRepoLimitReached = errors.New("free tier repository limit reached")

	// ErrReviewLimitReached indicates the free tier review ceiling is hit.
	ErrReviewLimitReached = errors.New("free tier review limit reached")
)

// Quota enforces plan limits. Pro accounts are unlimited; free accounts
// are capped on connected repositories and lifetime reviews.
type Quota struct {
	repos       repository.Store
	reviews     review.Store
	repoLimit   int
	reviewLimit int
}

// NewQuota creates a Quota service.
func NewQuota(repos repository.Store, reviews review.Store, repoLimit, reviewLimit int) Quota {
	return Quota{
		repos:       repos,
		reviews:     reviews,
		repoLimit:   repoLimit,
		reviewLimit: reviewLimit,
	}
}

// CheckRepositoryLimit returns ErrRepoLimitReached when connecting
// another repository would exceed the user's plan.
func (q Quota) CheckRepositoryLimit(ctx context.Context, user repository.User) error {
	if user.Plan() == repository.PlanPro {
		return nil
	}

	count, err := q.repos.CountByUser(ctx, user.ID())
	if err != nil {
		return fmt.Errorf("count repositories: %w", err)
	}
	if count >= int64(q.repoLimit) {
		return fmt.Errorf("%w: %d repositories", ErrRepoLimitReached, q.repoLimit)
	}
	return nil
}

// CheckReviewLimit returns ErrReviewLimitReached when a free user has
// already consumed their lifetime review budget.
func (q Quota) CheckReviewLimit(ctx context.Context, user repository.User) error {
	if user.Plan() == repository.PlanPro {
		return nil
	}

	count, err := q.reviews.CountByUser(ctx, user.ID())
	if err != nil {
		return fmt.Errorf("count reviews: %w", err)
	}
	if count >= int64(q.reviewLimit) {
		return fmt.Errorf("%w: %d reviews", ErrReviewLimitReached, q.reviewLimit)
	}
	return nil
}

package review

import "context"

// PullRequestStore persists pull requests.
type PullRequestStore interface {
	Get(ctx context.Context, id int64) (PullRequest, error)
	FindByRepository(ctx context.Context, repositoryID int64) ([]PullRequest, error)
	Save(ctx context.Context, pr PullRequest) (PullRequest, error)
}

// Store persists reviews.
type Store interface {
	Save(ctx context.Context, r Review) (Review, error)
	FindByRepository(ctx context.Context, repositoryID int64) ([]Review, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

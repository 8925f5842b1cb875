package repository

import "context"

// Store persists repositories.
type Store interface {
	Get(ctx context.Context, id int64) (Repository, error)
	GetConnectedByFullName(ctx context.Context, fullName string) (Repository, error)
	FindByUser(ctx context.Context, userID int64) ([]Repository, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	ExistsForUser(ctx context.Context, userID int64, githubRepoID string) (bool, error)
	Save(ctx context.Context, repo Repository) (Repository, error)
	// SaveIndexingState persists only the indexing lifecycle fields;
	// columns written by other flows, the webhook id included, are left
	// untouched.
	SaveIndexingState(ctx context.Context, repo Repository) (Repository, error)
	// SaveWebhookID records the installed webhook id without touching
	// any other column. The row may be rewritten concurrently by a
	// running indexing job.
	SaveWebhookID(ctx context.Context, repositoryID int64, webhookID string) error
	Delete(ctx context.Context, repo Repository) error
}

// UserStore persists users.
type UserStore interface {
	Get(ctx context.Context, id int64) (User, error)
	Save(ctx context.Context, user User) (User, error)
}

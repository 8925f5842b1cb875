// Package repository provides domain types for connected source repositories.
package repository

import "time"

// IndexingStatus represents the lifecycle state of a repository index.
type IndexingStatus string

// IndexingStatus values.
const (
	IndexingQueued     IndexingStatus = "queued"
	IndexingProcessing IndexingStatus = "processing"
	IndexingCompleted  IndexingStatus = "completed"
	IndexingFailed     IndexingStatus = "failed"
)

// IndexingMetrics summarises one completed indexing run.
type IndexingMetrics struct {
	FilesProcessed int   `json:"filesProcessed"`
	ChunksCreated  int   `json:"chunksCreated"`
	Errors         int   `json:"errors"`
	DurationMillis int64 `json:"duration"`
}

// Repository represents a source repository connected for review.
type Repository struct {
	id            int64
	userID        int64
	githubRepoID  string
	name          string
	owner         string
	fullName      string
	defaultBranch string
	private       bool
	connected     bool
	webhookID     string
	indexed       bool

	indexingStatus   IndexingStatus
	indexingProgress int
	indexingMetrics  IndexingMetrics
	lastIndexedAt    *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// New creates a freshly connected Repository in the queued indexing state.
func New(userID int64, githubRepoID, owner, name, fullName, defaultBranch string, private bool) Repository {
	return Repository{
		userID:         userID,
		githubRepoID:   githubRepoID,
		owner:          owner,
		name:           name,
		fullName:       fullName,
		defaultBranch:  defaultBranch,
		private:        private,
		connected:      true,
		indexingStatus: IndexingQueued,
	}
}

// NewWithID reconstructs a Repository from persisted state.
func NewWithID(
	id, userID int64,
	githubRepoID, owner, name, fullName, defaultBranch string,
	private, connected bool,
	webhookID string,
	indexed bool,
	status IndexingStatus,
	progress int,
	metrics IndexingMetrics,
	lastIndexedAt *time.Time,
	createdAt, updatedAt time.Time,
) Repository {
	return Repository{
		id:               id,
		userID:           userID,
		githubRepoID:     githubRepoID,
		owner:            owner,
		name:             name,
		fullName:         fullName,
		defaultBranch:    defaultBranch,
		private:          private,
		connected:        connected,
		webhookID:        webhookID,
		indexed:          indexed,
		indexingStatus:   status,
		indexingProgress: progress,
		indexingMetrics:  metrics,
		lastIndexedAt:    lastIndexedAt,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ID returns the repository ID.
func (r Repository) ID() int64 { return r.id }

// UserID returns the owning user's ID.
func (r Repository) UserID() int64 { return r.userID }

// GithubRepoID returns the host-side repository identifier.
func (r Repository) GithubRepoID() string { return r.githubRepoID }

// Owner returns the repository owner login.
func (r Repository) Owner() string { return r.owner }

// Name returns the repository name.
func (r Repository) Name() string { return r.name }

// FullName returns "owner/name".
func (r Repository) FullName() string { return r.fullName }

// DefaultBranch returns the default branch name.
func (r Repository) DefaultBranch() string { return r.defaultBranch }

// Private reports whether the repository is private on the host.
func (r Repository) Private() bool { return r.private }

// Connected reports whether the repository is currently connected.
func (r Repository) Connected() bool { return r.connected }

// WebhookID returns the host-side webhook identifier, or "" if none.
func (r Repository) WebhookID() string { return r.webhookID }

// Indexed reports whether the repository has a completed index.
func (r Repository) Indexed() bool { return r.indexed }

// IndexingStatus returns the current indexing lifecycle state.
func (r Repository) IndexingStatus() IndexingStatus { return r.indexingStatus }

// IndexingProgress returns the indexing progress, 0-100.
func (r Repository) IndexingProgress() int { return r.indexingProgress }

// IndexingMetrics returns the metrics of the last indexing run.
func (r Repository) IndexingMetrics() IndexingMetrics { return r.indexingMetrics }

// LastIndexedAt returns when the repository was last fully indexed.
func (r Repository) LastIndexedAt() *time.Time { return r.lastIndexedAt }

// CreatedAt returns when the repository was connected.
func (r Repository) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns when the repository was last updated.
func (r Repository) UpdatedAt() time.Time { return r.updatedAt }

// WithIndexingStarted returns a copy marked as processing with progress reset.
func (r Repository) WithIndexingStarted() Repository {
	r.indexed = false
	r.indexingStatus = IndexingProcessing
	r.indexingProgress = 0
	return r
}

// WithIndexingProgress returns a copy with updated progress.
func (r Repository) WithIndexingProgress(percent int) Repository {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r.indexingProgress = percent
	return r
}

// WithIndexingCompleted returns a copy marked as completed with final metrics.
func (r Repository) WithIndexingCompleted(metrics IndexingMetrics, at time.Time) Repository {
	r.indexed = true
	r.indexingStatus = IndexingCompleted
	r.indexingProgress = 100
	r.indexingMetrics = metrics
	r.lastIndexedAt = &at
	return r
}

// WithIndexingFailed returns a copy marked as failed.
func (r Repository) WithIndexingFailed() Repository {
	r.indexed = false
	r.indexingStatus = IndexingFailed
	return r
}

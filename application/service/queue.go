// Package service provides application services coordinating domain
// operations.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codeowl/codeowl/domain/task"
)

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store  task.Store
	logger *slog.Logger
}

// NewQueue creates a new queue service.
func NewQueue(store task.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// Enqueue adds a task to the queue.
// If a task with the same dedup_key is pending, it updates the priority
// instead of creating a duplicate.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) error {
	_, err := s.store.Save(ctx, t)
	if err != nil {
		return err
	}

	s.logger.Debug("task enqueued",
		slog.String("dedup_key", t.DedupKey()),
		slog.String("operation", t.Operation().String()),
	)
	return nil
}

// EnqueueIndexing queues an indexing run for the repository. Repeated
// calls while one is pending collapse into a single task.
func (s *Queue) EnqueueIndexing(ctx context.Context, repositoryID int64, priority task.Priority) error {
	t := task.New(
		task.OperationIndexRepository,
		task.IndexDedupKey(repositoryID),
		priority,
		map[string]any{"repositoryId": repositoryID},
	)
	return s.Enqueue(ctx, t)
}

// EnqueueReview queues a review of the pull request's current head.
// Each qualifying delivery creates its own pull request record, so the
// key is unique per delivery. The SHA keeps the key readable against
// the queue; a uuid stands in when the event carries none.
func (s *Queue) EnqueueReview(ctx context.Context, repositoryID, pullRequestID int64, prNumber int, headSHA string) error {
	jobKey := headSHA
	if jobKey == "" {
		jobKey = uuid.NewString()
	}
	t := task.New(
		task.OperationReviewPullRequest,
		fmt.Sprintf("review-%d-%s", pullRequestID, jobKey),
		task.PriorityNormal,
		map[string]any{
			"repositoryId":  repositoryID,
			"pullRequestId": pullRequestID,
			"prNumber":      prNumber,
			"headSha":       headSHA,
		},
	)
	return s.Enqueue(ctx, t)
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}

// DrainForRepository removes all pending tasks that reference the
// repository. This prevents stale indexing or review tasks from running
// after a repository is disconnected.
func (s *Queue) DrainForRepository(ctx context.Context, repositoryID int64) (int, error) {
	removed, err := s.store.DeleteForRepository(ctx, repositoryID)
	if err != nil {
		return 0, fmt.Errorf("drain tasks for repository %d: %w", repositoryID, err)
	}

	if removed > 0 {
		s.logger.Info("drained pending tasks",
			slog.Int64("repository_id", repositoryID),
			slog.Int("removed", removed),
		)
	}
	return removed, nil
}

package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codeowl/codeowl/domain/task"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/internal/testdb"
)

func TestTaskStore_SaveDeduplicates(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	first := task.New(task.OperationIndexRepository, task.IndexDedupKey(1), task.PriorityBackground, map[string]any{"repositoryId": int64(1)})
	_, err := store.Save(ctx, first)
	require.NoError(t, err)

	// Re-enqueue with a higher priority collapses into the pending task.
	second := task.New(task.OperationIndexRepository, task.IndexDedupKey(1), task.PriorityUserInitiated, map[string]any{"repositoryId": int64(1)})
	_, err = store.Save(ctx, second)
	require.NoError(t, err)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	claimed, ok, err := store.Dequeue(ctx, task.OperationIndexRepository)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int(task.PriorityUserInitiated), claimed.Priority())
}

func TestTaskStore_DequeueOrdersByPriority(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, task.New(task.OperationIndexRepository, "low", task.PriorityBackground, nil))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationIndexRepository, "high", task.PriorityUserInitiated, nil))
	require.NoError(t, err)

	claimed, ok, err := store.Dequeue(ctx, task.OperationIndexRepository)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "high", claimed.DedupKey())

	claimed, ok, err = store.Dequeue(ctx, task.OperationIndexRepository)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "low", claimed.DedupKey())

	_, ok, err = store.Dequeue(ctx, task.OperationIndexRepository)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTaskStore_DequeueFiltersByOperation(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, task.New(task.OperationIndexRepository, "index", task.PriorityNormal, nil))
	require.NoError(t, err)

	_, ok, err := store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.False(t, ok)

	claimed, ok, err := store.Dequeue(ctx, task.OperationIndexRepository, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, task.OperationIndexRepository, claimed.Operation())
}

func TestTaskStore_DequeueHonoursNotBefore(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	claimed, ok, err := store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.False(t, ok)

	original := task.New(task.OperationReviewPullRequest, "review-1", task.PriorityNormal, map[string]any{"pullRequestId": int64(7)})
	_, err = store.Save(ctx, original)
	require.NoError(t, err)

	claimed, ok, err = store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.True(t, ok)

	// Schedule a retry in the future; it must not be dequeued yet.
	retry := claimed.WithRetry(time.Now().Add(time.Hour))
	_, err = store.Save(ctx, retry)
	require.NoError(t, err)

	_, ok, err = store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestTaskStore_RetryPreservesPayloadAndAttempts(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, task.New(task.OperationReviewPullRequest, "review-9", task.PriorityNormal, map[string]any{"pullRequestId": int64(9)}))
	require.NoError(t, err)

	claimed, ok, err := store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, claimed.Attempts())

	_, err = store.Save(ctx, claimed.WithRetry(time.Now().Add(-time.Second)))
	require.NoError(t, err)

	claimed, ok, err = store.Dequeue(ctx, task.OperationReviewPullRequest)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, claimed.Attempts())

	id, found := claimed.PayloadInt64("pullRequestId")
	require.True(t, found)
	require.Equal(t, int64(9), id)
}

func TestTaskStore_DequeueLosesRaceToCompetingWorker(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, task.New(task.OperationIndexRepository, "contested", task.PriorityNormal, nil))
	require.NoError(t, err)

	// A competing worker removes the row after this worker has read it
	// but before its delete runs.
	stolen := false
	err = db.Session(ctx).Callback().Delete().Before("gorm:delete").Register("competing_worker", func(tx *gorm.DB) {
		if stolen {
			return
		}
		stolen = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM tasks")
	})
	require.NoError(t, err)

	_, ok, err := store.Dequeue(ctx, task.OperationIndexRepository)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTaskStore_DeleteForRepository(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewTaskStore(db)
	ctx := context.Background()

	_, err := store.Save(ctx, task.New(task.OperationIndexRepository, task.IndexDedupKey(1), task.PriorityBackground, map[string]any{"repositoryId": int64(1)}))
	require.NoError(t, err)
	_, err = store.Save(ctx, task.New(task.OperationIndexRepository, task.IndexDedupKey(2), task.PriorityBackground, map[string]any{"repositoryId": int64(2)}))
	require.NoError(t, err)

	deleted, err := store.DeleteForRepository(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

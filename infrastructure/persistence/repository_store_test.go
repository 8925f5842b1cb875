package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/infrastructure/persistence"
	"github.com/codeowl/codeowl/internal/database"
	"github.com/codeowl/codeowl/internal/testdb"
)

func TestRepositoryStore_SaveAndGet(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	repo := repository.New(1, "gh-123", "octocat", "hello", "octocat/hello", "main", true)
	saved, err := store.Save(ctx, repo)
	require.NoError(t, err)
	require.NotZero(t, saved.ID())
	require.Equal(t, repository.IndexingQueued, saved.IndexingStatus())

	got, err := store.Get(ctx, saved.ID())
	require.NoError(t, err)
	require.Equal(t, "octocat/hello", got.FullName())
	require.Equal(t, "main", got.DefaultBranch())
	require.True(t, got.Private())
	require.True(t, got.Connected())
}

func TestRepositoryStore_GetNotFound(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)

	_, err := store.Get(context.Background(), 999)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepositoryStore_IndexingMetricsRoundTrip(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	saved, err := store.Save(ctx, repository.New(1, "gh-1", "o", "r", "o/r", "main", false))
	require.NoError(t, err)

	metrics := repository.IndexingMetrics{
		FilesProcessed: 42,
		ChunksCreated:  130,
		Errors:         2,
		DurationMillis: 9001,
	}
	completedAt := time.Now().UTC().Truncate(time.Second)
	_, err = store.Save(ctx, saved.WithIndexingStarted().WithIndexingCompleted(metrics, completedAt))
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID())
	require.NoError(t, err)
	require.True(t, got.Indexed())
	require.Equal(t, repository.IndexingCompleted, got.IndexingStatus())
	require.Equal(t, 100, got.IndexingProgress())
	require.Equal(t, metrics, got.IndexingMetrics())
	require.NotNil(t, got.LastIndexedAt())
}

func TestRepositoryStore_WebhookWriteBackKeepsIndexingState(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	// The connect flow hands a pre-indexing snapshot to the webhook
	// goroutine while the indexing job updates the same row.
	snapshot, err := store.Save(ctx, repository.New(1, "gh-1", "o", "r", "o/r", "main", false))
	require.NoError(t, err)

	current, err := store.Get(ctx, snapshot.ID())
	require.NoError(t, err)
	_, err = store.SaveIndexingState(ctx, current.WithIndexingStarted())
	require.NoError(t, err)

	metrics := repository.IndexingMetrics{FilesProcessed: 10, ChunksCreated: 12}
	_, err = store.SaveIndexingState(ctx, current.WithIndexingCompleted(metrics, time.Now().UTC()))
	require.NoError(t, err)

	// The webhook write-back lands last, holding the stale snapshot.
	require.NoError(t, store.SaveWebhookID(ctx, snapshot.ID(), "hook-99"))

	got, err := store.Get(ctx, snapshot.ID())
	require.NoError(t, err)
	require.Equal(t, repository.IndexingCompleted, got.IndexingStatus())
	require.Equal(t, metrics, got.IndexingMetrics())
	require.Equal(t, "hook-99", got.WebhookID())
}

func TestRepositoryStore_IndexingStateKeepsWebhookID(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	saved, err := store.Save(ctx, repository.New(1, "gh-1", "o", "r", "o/r", "main", false))
	require.NoError(t, err)
	require.NoError(t, store.SaveWebhookID(ctx, saved.ID(), "hook-7"))

	// saved predates the webhook write, so a full-row save here would
	// wipe the hook id and strand the webhook on disconnect.
	_, err = store.SaveIndexingState(ctx, saved.WithIndexingStarted())
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.ID())
	require.NoError(t, err)
	require.Equal(t, "hook-7", got.WebhookID())
	require.Equal(t, repository.IndexingProcessing, got.IndexingStatus())
}

func TestRepositoryStore_SaveWebhookIDMissingRow(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)

	err := store.SaveWebhookID(context.Background(), 404, "hook-1")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepositoryStore_GetConnectedByFullName(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	saved, err := store.Save(ctx, repository.New(1, "gh-1", "o", "r", "o/r", "main", false))
	require.NoError(t, err)

	got, err := store.GetConnectedByFullName(ctx, "o/r")
	require.NoError(t, err)
	require.Equal(t, saved.ID(), got.ID())

	_, err = store.GetConnectedByFullName(ctx, "o/other")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepositoryStore_CountsAndExists(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.Save(ctx, repository.New(1, "gh-"+name, "o", name, "o/"+name, "main", false))
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, repository.New(2, "gh-z", "o", "z", "o/z", "main", false))
	require.NoError(t, err)

	count, err := store.CountByUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	exists, err := store.ExistsForUser(ctx, 1, "gh-a")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.ExistsForUser(ctx, 2, "gh-a")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRepositoryStore_Delete(t *testing.T) {
	db := testdb.New(t)
	store := persistence.NewRepositoryStore(db)
	ctx := context.Background()

	saved, err := store.Save(ctx, repository.New(1, "gh-1", "o", "r", "o/r", "main", false))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, saved))

	_, err = store.Get(ctx, saved.ID())
	require.ErrorIs(t, err, database.ErrNotFound)
}

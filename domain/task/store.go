package task

import "context"

// Store is a durable task queue. Save deduplicates on the dedup key:
// enqueuing a task whose key is already pending updates its priority
// instead of creating a duplicate.
type Store interface {
	Save(ctx context.Context, t Task) (Task, error)
	// Dequeue atomically claims and removes the highest-priority ready task
	// for one of the given operations. Tasks whose NotBefore lies in the
	// future are not ready.
	Dequeue(ctx context.Context, operations ...Operation) (Task, bool, error)
	CountPending(ctx context.Context) (int64, error)
	DeleteForRepository(ctx context.Context, repositoryID int64) (int, error)
}

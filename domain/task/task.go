// Package task provides task queue domain types for async work processing.
package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Priority represents task queue priority levels.
type Priority int

// Priority values.
const (
	PriorityBackground    Priority = 1000
	PriorityNormal        Priority = 2000
	PriorityUserInitiated Priority = 5000
)

// IndexDedupKey returns the stable deduplication key for a repository's
// indexing task. While one indexing task for a repository is outstanding,
// further enqueues collapse into it.
func IndexDedupKey(repositoryID int64) string {
	return fmt.Sprintf("index-%d", repositoryID)
}

// Task represents an item in the queue waiting to be processed.
// Existence implies pending; dequeued tasks are removed and re-enqueued
// on retryable failure with an incremented attempt count.
type Task struct {
	id        int64
	dedupKey  string
	operation Operation
	priority  int
	payload   map[string]any
	attempts  int
	notBefore time.Time
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Task with the given operation, dedup key, priority, and payload.
func New(operation Operation, dedupKey string, priority Priority, payload map[string]any) Task {
	return Task{
		dedupKey:  dedupKey,
		operation: operation,
		priority:  int(priority),
		payload:   copyPayload(payload),
	}
}

// NewWithID reconstructs a Task from persisted state.
func NewWithID(
	id int64,
	dedupKey string,
	operation Operation,
	priority int,
	payload map[string]any,
	attempts int,
	notBefore time.Time,
	createdAt, updatedAt time.Time,
) Task {
	return Task{
		id:        id,
		dedupKey:  dedupKey,
		operation: operation,
		priority:  priority,
		payload:   copyPayload(payload),
		attempts:  attempts,
		notBefore: notBefore,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the task ID.
func (t Task) ID() int64 { return t.id }

// DedupKey returns the deduplication key.
func (t Task) DedupKey() string { return t.dedupKey }

// Operation returns the task operation.
func (t Task) Operation() Operation { return t.operation }

// Priority returns the task priority.
func (t Task) Priority() int { return t.priority }

// Payload returns a copy of the task payload.
func (t Task) Payload() map[string]any { return copyPayload(t.payload) }

// Attempts returns how many times the task has been executed and failed.
func (t Task) Attempts() int { return t.attempts }

// NotBefore returns the earliest time the task may be dequeued.
func (t Task) NotBefore() time.Time { return t.notBefore }

// CreatedAt returns when the task was created.
func (t Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the task was last updated.
func (t Task) UpdatedAt() time.Time { return t.updatedAt }

// WithRetry returns a copy scheduled for another attempt at the given time.
func (t Task) WithRetry(notBefore time.Time) Task {
	t.id = 0
	t.attempts++
	t.notBefore = notBefore
	return t
}

// PayloadJSON returns the payload as JSON bytes.
func (t Task) PayloadJSON() ([]byte, error) {
	return json.Marshal(t.payload)
}

// PayloadInt64 extracts an integer payload field. JSON round-trips turn
// numbers into float64, so all numeric kinds are accepted.
func (t Task) PayloadInt64(key string) (int64, bool) {
	return payloadInt64(t.payload, key)
}

func payloadInt64(payload map[string]any, key string) (int64, bool) {
	val, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func copyPayload(payload map[string]any) map[string]any {
	cp := make(map[string]any, len(payload))
	maps.Copy(cp, payload)
	return cp
}

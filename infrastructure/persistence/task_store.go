package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeowl/codeowl/domain/task"
	"github.com/codeowl/codeowl/internal/database"
)

// TaskStore implements task.Store using GORM.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
	now    func() time.Time
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{
		db:     db,
		mapper: TaskMapper{},
		now:    time.Now,
	}
}

// Save creates a new task or updates an existing one.
// Uses dedup_key for conflict resolution.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model, err := s.mapper.ToModel(t)
	if err != nil {
		return task.Task{}, err
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "not_before", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return task.Task{}, fmt.Errorf("save task: %w", result.Error)
	}

	return s.mapper.ToDomain(model), nil
}

// Dequeue atomically claims and removes the highest priority ready task
// for one of the given operations.
func (s TaskStore) Dequeue(ctx context.Context, operations ...task.Operation) (task.Task, bool, error) {
	ops := make([]string, len(operations))
	for i, op := range operations {
		ops[i] = op.String()
	}

	var model TaskModel

	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("not_before <= ?", s.now())
		if len(ops) > 0 {
			query = query.Where("operation IN ?", ops)
		}

		result := query.Order("priority DESC, created_at ASC").First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil // No tasks ready
			}
			return result.Error
		}

		del := tx.Delete(&model)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			// Another worker claimed the row between the read and the
			// delete. Report no task rather than hand out a duplicate.
			model = TaskModel{}
		}
		return nil
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	if model.ID == 0 {
		return task.Task{}, false, nil
	}

	return s.mapper.ToDomain(model), true, nil
}

// CountPending returns the number of queued tasks.
func (s TaskStore) CountPending(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.Session(ctx).Model(&TaskModel{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("count pending tasks: %w", result.Error)
	}
	return count, nil
}

// DeleteForRepository removes pending tasks whose payload references the
// repository. Used when a repository is disconnected.
func (s TaskStore) DeleteForRepository(ctx context.Context, repositoryID int64) (int, error) {
	var models []TaskModel
	if err := s.db.Session(ctx).Find(&models).Error; err != nil {
		return 0, fmt.Errorf("load tasks: %w", err)
	}

	deleted := 0
	for _, model := range models {
		t := s.mapper.ToDomain(model)
		id, ok := t.PayloadInt64("repositoryId")
		if !ok || id != repositoryID {
			continue
		}
		if err := s.db.Session(ctx).Delete(&TaskModel{}, model.ID).Error; err != nil {
			return deleted, fmt.Errorf("delete task: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// Ensure TaskStore implements the domain interface.
var _ task.Store = TaskStore{}

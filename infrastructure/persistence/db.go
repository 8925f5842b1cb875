package persistence

import (
	"context"
	"fmt"

	"github.com/codeowl/codeowl/internal/database"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	if err := db.Session(context.Background()).AutoMigrate(
		&UserModel{},
		&RepositoryModel{},
		&PullRequestModel{},
		&ReviewModel{},
		&TaskModel{},
		&ChunkEmbeddingModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

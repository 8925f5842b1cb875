package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/codeowl/codeowl/domain/repository"
	"github.com/codeowl/codeowl/internal/database"
)

// UserStore implements repository.UserStore using GORM.
type UserStore struct {
	db     database.Database
	mapper UserMapper
}

// NewUserStore creates a new UserStore.
func NewUserStore(db database.Database) UserStore {
	return UserStore{
		db:     db,
		mapper: UserMapper{},
	}
}

// Get retrieves a user by ID.
func (s UserStore) Get(ctx context.Context, id int64) (repository.User, error) {
	var model UserModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return repository.User{}, fmt.Errorf("%w: user id %d", database.ErrNotFound, id)
		}
		return repository.User{}, fmt.Errorf("get user: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// Save creates or updates a user.
func (s UserStore) Save(ctx context.Context, u repository.User) (repository.User, error) {
	model := s.mapper.ToModel(u)

	var result *gorm.DB
	if u.ID() == 0 {
		result = s.db.Session(ctx).Create(&model)
	} else {
		result = s.db.Session(ctx).Save(&model)
	}
	if result.Error != nil {
		return repository.User{}, fmt.Errorf("save user: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// Ensure UserStore implements the domain interface.
var _ repository.UserStore = UserStore{}

// Package users declares and implements the persistence contract for user
// accounts.
package users

import (
	"context"

	"github.com/profiledoc/profiledoc/internal/server/models"
)

// Repository defines operations for creating and looking up users.
type Repository interface {
	// Create inserts a new user and returns it with the generated id.
	// A duplicate email yields common.ErrUserAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by normalized (lowercase) email.
	// Returns common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by primary key.
	// Returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)
}

package repository

import (
	"context"

	"github.com/studyhub/authsvc/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists.
	// Uniqueness is enforced by the storage layer, not by a prior read
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by username. Lookup is a case-sensitive exact match
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// Store the last issued refresh token on the user row
	SaveRefreshToken(ctx context.Context, username string, token string) error

	// Total number of registered users
	CountUsers(ctx context.Context) (int64, error)
}

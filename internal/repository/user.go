package repository

import (
	"context"

	"github.com/ItsRoy69/Game/internal/domain"
)

// UserRepository is the narrow read-only view of the external identity
// store that the relay needs: resolving user ids to display names.
type UserRepository interface {
	// FindByID returns the user or ErrUserNotFound.
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

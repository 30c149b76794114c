package repository

import (
	"context"

	"github.com/zhanatb/linguabook/internal/domain"
)

type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create returns domain.ErrDuplicateEmail when the email is already
	// taken. Uniqueness is enforced by the storage layer so that two
	// concurrent registrations cannot both succeed.
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)
}

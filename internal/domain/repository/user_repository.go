package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/freshflower-auth/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the interface for user-related storage operations.
// Implementations return ErrNotFound when no user matches and
// ErrDuplicateEmail when Create would break email uniqueness.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Ping(ctx context.Context) error
}

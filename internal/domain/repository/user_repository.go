package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// Uniqueness of email and username is enforced by the store and surfaces as *DuplicateError.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// UpdateProfile persists first/last name, avatar and bio.
	UpdateProfile(ctx context.Context, u *entity.User) error
	// UpdatePassword replaces the hash and bumps the token version in one statement.
	UpdatePassword(ctx context.Context, id, hash string) error
	// Deactivate clears is_active and bumps the token version.
	Deactivate(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error

	CountPosts(ctx context.Context, userID string) (int, error)
	CountComments(ctx context.Context, userID string) (int, error)
}

package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *entity.Category) error
	List(ctx context.Context) ([]entity.Category, error)
	GetByID(ctx context.Context, id string) (*entity.Category, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Category, error)
	Update(ctx context.Context, c *entity.Category) error
	// Delete removes the category; its posts go with it through the FK cascade.
	Delete(ctx context.Context, id string) error
	// SlugsWithPrefix returns base itself and every "base-*" slug already taken.
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
}

// PostFilter narrows PostRepository.List.
type PostFilter struct {
	CategoryID    string
	PublishedOnly bool
}

type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	List(ctx context.Context, f PostFilter) ([]entity.Post, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Post, error)
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id string) error
	IDsByCategory(ctx context.Context, categoryID string) ([]string, error)
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
}

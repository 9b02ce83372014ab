package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
)

// PostHit is a search result from the post index.
type PostHit struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	CategorySlug string  `json:"category"`
	Published    bool    `json:"published"`
	Score        float64 `json:"score"`
}

// PostIndex is the full-text search side of the content store.
type PostIndex interface {
	Index(ctx context.Context, p *entity.Post, categorySlug string) error
	Delete(ctx context.Context, ids ...string) error
	Search(ctx context.Context, q string, publishedOnly bool, size int) ([]PostHit, error)
}

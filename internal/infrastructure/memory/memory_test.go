package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

var (
	_ repo.UserRepository = (*UserRepository)(nil)
	_ repo.TokenBlacklist = (*TokenBlacklist)(nil)
	_ repo.AvatarStorage  = (*AvatarStorage)(nil)
	_ repo.PostIndex      = (*PostIndex)(nil)
)

func TestSlugsWithPrefix_MatchesSQLStore(t *testing.T) {
	ctx := context.Background()
	store := NewContentStore()
	cats := store.Categories()

	for _, s := range []string{"go", "go-2", "golang", "go-tips"} {
		require.NoError(t, cats.Create(ctx, &entity.Category{Name: s, Slug: s}))
	}
	got, err := cats.SlugsWithPrefix(ctx, "go")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go", "go-2", "go-tips"}, got)

	err = cats.Create(ctx, &entity.Category{Name: "Go again", Slug: "go"})
	field, dup := repo.IsDuplicate(err)
	assert.True(t, dup)
	assert.Equal(t, "slug", field)
}

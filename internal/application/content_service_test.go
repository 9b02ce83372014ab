package application

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/internal/infrastructure/memory"
)

var (
	staff  = Actor{UserID: "11111111-1111-1111-1111-111111111111", IsStaff: true}
	reader = Actor{}
)

func newContentFixture(t *testing.T) (*ContentService, *memory.ContentStore, *memory.PostIndex) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store := memory.NewContentStore()
	idx := memory.NewPostIndex()
	return NewContentService(store.Categories(), store.Posts(), idx, logger), store, idx
}

func TestCreateCategory_DerivesSlug(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Tech News"})
	require.NoError(t, err)
	assert.Equal(t, "tech-news", c.Slug)

	c2, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Tech  News!"})
	require.NoError(t, err)
	assert.Equal(t, "tech-news-2", c2.Slug)

	c3, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "tech news?"})
	require.NoError(t, err)
	assert.Equal(t, "tech-news-3", c3.Slug)

	c4, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, "category", c4.Slug)
}

func TestCreateCategory_Validation(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, reader, CategoryInput{Name: "Go"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go", Slug: "Not A Slug"})
	fieldErr(t, err, "slug")

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go", Slug: "golang"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go"})
	assert.Equal(t, "category with this name already exists.", fieldErr(t, err, "name"))

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Golang", Slug: "golang"})
	assert.Equal(t, "category with this slug already exists.", fieldErr(t, err, "slug"))
}

func TestPosts_SlugAndVisibility(t *testing.T) {
	svc, _, idx := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Tech News"})
	require.NoError(t, err)

	p, err := svc.CreatePost(ctx, staff, PostInput{Title: "Hello, World!", Content: "hi", Category: "tech-news", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", p.Slug)
	assert.Equal(t, "tech-news", p.Category)
	require.NotNil(t, p.Author)
	assert.Equal(t, staff.UserID, *p.Author)
	assert.True(t, idx.Has(p.ID))

	draft, err := svc.CreatePost(ctx, staff, PostInput{Title: "Hello World", Content: "draft", Category: "tech-news"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", draft.Slug)

	all, err := svc.ListPosts(ctx, staff, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "hello-world-2", all[0].Slug, "newest first")

	public, err := svc.ListPosts(ctx, reader, "")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "hello-world", public[0].Slug)

	_, err = svc.GetPost(ctx, reader, "hello-world-2")
	assert.ErrorIs(t, err, ErrPostNotFound)
	got, err := svc.GetPost(ctx, staff, "hello-world-2")
	require.NoError(t, err)
	assert.False(t, got.Published)

	none, err := svc.ListPosts(ctx, staff, "no-such-category")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreatePost_Validation(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, reader, PostInput{Title: "x", Category: "c"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreatePost(ctx, staff, PostInput{Title: "x", Category: "missing"})
	fieldErr(t, err, "category")

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "C"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, staff, PostInput{Title: "First", Slug: "same", Category: "c"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, staff, PostInput{Title: "Second", Slug: "same", Category: "c"})
	assert.Equal(t, "post with this slug already exists.", fieldErr(t, err, "slug"))
}

func TestUpdatePost_Reindexes(t *testing.T) {
	svc, _, idx := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Rust"})
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, staff, PostInput{Title: "Generics", Content: "...", Category: "go"})
	require.NoError(t, err)

	title := "Generics in depth"
	published := true
	moved := "rust"
	up, err := svc.UpdatePost(ctx, staff, p.Slug, PostPatch{Title: &title, Published: &published, Category: &moved})
	require.NoError(t, err)
	assert.Equal(t, "generics", up.Slug, "slug survives a title change")
	assert.Equal(t, "rust", up.Category)
	assert.True(t, up.Published)

	hits, err := svc.SearchPosts(ctx, reader, "depth", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rust", hits[0].CategorySlug)
	assert.True(t, idx.Has(p.ID))

	_, err = svc.UpdatePost(ctx, reader, p.Slug, PostPatch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteCategory_CascadesPostsAndIndex(t *testing.T) {
	svc, store, idx := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Doomed"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Kept"})
	require.NoError(t, err)
	a, err := svc.CreatePost(ctx, staff, PostInput{Title: "A", Category: "doomed", Published: true})
	require.NoError(t, err)
	b, err := svc.CreatePost(ctx, staff, PostInput{Title: "B", Category: "doomed"})
	require.NoError(t, err)
	k, err := svc.CreatePost(ctx, staff, PostInput{Title: "K", Category: "kept"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, reader, "doomed"), ErrForbidden)
	require.NoError(t, svc.DeleteCategory(ctx, staff, "doomed"))

	_, err = svc.GetCategory(ctx, "doomed")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	_, err = svc.GetPost(ctx, staff, a.Slug)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = svc.GetPost(ctx, staff, b.Slug)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, 1, store.PostCount())
	assert.False(t, idx.Has(a.ID))
	assert.False(t, idx.Has(b.ID))
	assert.True(t, idx.Has(k.ID))

	assert.ErrorIs(t, svc.DeleteCategory(ctx, staff, "doomed"), ErrCategoryNotFound)
}

func TestUpdateCategory_SlugChangeReindexes(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, staff, PostInput{Title: "Channels", Category: "go", Published: true})
	require.NoError(t, err)

	next := "golang"
	c, err := svc.UpdateCategory(ctx, staff, "go", CategoryPatch{Slug: &next})
	require.NoError(t, err)
	assert.Equal(t, "golang", c.Slug)

	hits, err := svc.SearchPosts(ctx, reader, "channels", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "golang", hits[0].CategorySlug)

	bad := "Bad Slug"
	_, err = svc.UpdateCategory(ctx, staff, "golang", CategoryPatch{Slug: &bad})
	fieldErr(t, err, "slug")
}

func TestSearchPosts(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.SearchPosts(ctx, reader, "  ", 10)
	fieldErr(t, err, "q")

	_, err = svc.CreateCategory(ctx, staff, CategoryInput{Name: "Go"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, staff, PostInput{Title: "Draft about maps", Category: "go"})
	require.NoError(t, err)

	hits, err := svc.SearchPosts(ctx, reader, "maps", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = svc.SearchPosts(ctx, staff, "maps", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	svc.Index = nil
	hits, err = svc.SearchPosts(ctx, staff, "maps", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUniqueSlug_Truncates(t *testing.T) {
	store := []string{"a-very-long", "a-very-lo-2"}
	taken := func(_ context.Context, prefix string) ([]string, error) {
		var out []string
		for _, s := range store {
			if s == prefix || strings.HasPrefix(s, prefix+"-") {
				out = append(out, s)
			}
		}
		return out, nil
	}
	got, err := uniqueSlug(context.Background(), "a-very-long-title-that-keeps-going", "post", 11, taken)
	require.NoError(t, err)
	assert.Equal(t, "a-very-lo-3", got)
}

func TestCreatePost_MaxLengthTitlesStayUnique(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()
	_, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: "Long", Slug: "long"})
	require.NoError(t, err)

	title := strings.Repeat("a", postSlugMax)
	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		p, err := svc.CreatePost(ctx, staff, PostInput{Title: title, Content: "body", Category: "long"})
		require.NoError(t, err, "post %d", i+1)
		assert.LessOrEqual(t, len(p.Slug), postSlugMax)
		assert.False(t, seen[p.Slug], "slug %q handed out twice", p.Slug)
		seen[p.Slug] = true
	}
	assert.True(t, seen[strings.Repeat("a", postSlugMax-3)+"-10"])

	name := strings.Repeat("b", categorySlugMax)
	for i := 0; i < 3; i++ {
		c, err := svc.CreateCategory(ctx, staff, CategoryInput{Name: name + strconv.Itoa(i)})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(c.Slug), categorySlugMax)
		assert.False(t, seen[c.Slug])
		seen[c.Slug] = true
	}
}

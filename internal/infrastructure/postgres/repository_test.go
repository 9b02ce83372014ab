package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	"github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

// setupDB needs a disposable database in TEST_DATABASE_URL; the tests skip without one.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	require.NoError(t, err)
	m, err := migrate.NewWithDatabaseInstance("file://../../../db/migrations", "postgres", driver)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, 4, 0, time.Minute)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE comments, posts, categories, users CASCADE`)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newUser(suffix string) *entity.User {
	return &entity.User{
		Email:        "user" + suffix + "@example.com",
		Username:     "user" + suffix,
		PasswordHash: "hash",
		FirstName:    "First",
		IsActive:     true,
	}
}

func TestUserRepository_UniqueAndLookup(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)

	u := newUser("1")
	require.NoError(t, users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := users.GetByEmail(ctx, "USER1@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.LastLogin)

	dup := newUser("2")
	dup.Email = "User1@Example.com"
	field, ok := repository.IsDuplicate(users.Create(ctx, dup))
	assert.True(t, ok)
	assert.Equal(t, "email", field)

	dup = newUser("3")
	dup.Username = "user1"
	field, ok = repository.IsDuplicate(users.Create(ctx, dup))
	assert.True(t, ok)
	assert.Equal(t, "username", field)

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_VersionBumps(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	u := newUser("1")
	require.NoError(t, users.Create(ctx, u))

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))
	require.NoError(t, users.Deactivate(ctx, u.ID))
	require.NoError(t, users.TouchLastLogin(ctx, u.ID, time.Now()))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, 2, got.TokenVersion)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.LastLogin)

	assert.ErrorIs(t, users.Deactivate(ctx, uuid.NewString()), repository.ErrNotFound)
}

func TestCascades(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	cats := NewCategoryRepository(pool)
	posts := NewPostRepository(pool)

	author := newUser("1")
	require.NoError(t, users.Create(ctx, author))
	c := &entity.Category{Name: "Tech News", Slug: "tech-news"}
	require.NoError(t, cats.Create(ctx, c))

	_, ok := repository.IsDuplicate(cats.Create(ctx, &entity.Category{Name: "Other", Slug: "tech-news"}))
	assert.True(t, ok)

	p := &entity.Post{Title: "Hello", Slug: "hello", Content: "x", CategoryID: c.ID, AuthorID: author.ID, Published: true}
	require.NoError(t, posts.Create(ctx, p))
	_, err := pool.Exec(ctx, `INSERT INTO comments (post_id, author_id, body) VALUES ($1, $2, 'nice')`, p.ID, author.ID)
	require.NoError(t, err)

	n, err := users.CountPosts(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = users.CountComments(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	slugs, err := posts.SlugsWithPrefix(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, slugs)

	// deleting the author keeps the post and drops the comment
	require.NoError(t, users.Delete(ctx, author.ID))
	kept, err := posts.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Empty(t, kept.AuthorID)

	// deleting the category takes its posts with it
	require.NoError(t, cats.Delete(ctx, c.ID))
	_, err = posts.GetBySlug(ctx, "hello")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

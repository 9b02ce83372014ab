package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	"github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, name, slug, description, created_at`

func scanCategory(row pgx.Row) (*entity.Category, error) {
	c := &entity.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *entity.Category) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.Name, c.Slug, c.Description)
	return mapErr(row.Scan(&c.ID, &c.CreatedAt))
}

func (r *CategoryRepository) List(ctx context.Context) ([]entity.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []entity.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
}

func (r *CategoryRepository) Update(ctx context.Context, c *entity.Category) error {
	return mustAffect(r.pool.Exec(ctx, `
		UPDATE categories SET name = $1, slug = $2, description = $3 WHERE id = $4
	`, c.Name, c.Slug, c.Description, c.ID))
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return mustAffect(r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id))
}

func (r *CategoryRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	return slugsWithPrefix(ctx, r.pool, "categories", base)
}

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

const postColumns = `id, title, slug, content, category_id, COALESCE(author_id::text, ''), published, created_at, updated_at`

func scanPost(row pgx.Row) (*entity.Post, error) {
	p := &entity.Post{}
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.CategoryID, &p.AuthorID,
		&p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p *entity.Post) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO posts (title, slug, content, category_id, author_id, published)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
		RETURNING id, created_at, updated_at
	`, p.Title, p.Slug, p.Content, p.CategoryID, p.AuthorID, p.Published)
	return mapErr(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *PostRepository) List(ctx context.Context, f repository.PostFilter) ([]entity.Post, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where = append(where, "category_id = $1")
	}
	if f.PublishedOnly {
		where = append(where, "published")
	}
	q := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []entity.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*entity.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug))
}

func (r *PostRepository) Update(ctx context.Context, p *entity.Post) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $1, slug = $2, content = $3, category_id = $4, published = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, p.Title, p.Slug, p.Content, p.CategoryID, p.Published, p.ID)
	return mapErr(row.Scan(&p.UpdatedAt))
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return mustAffect(r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id))
}

func (r *PostRepository) IDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text FROM posts WHERE category_id = $1`, categoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostRepository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	return slugsWithPrefix(ctx, r.pool, "posts", base)
}

// slugsWithPrefix lists base and every base-* slug in table. table is never user input.
func slugsWithPrefix(ctx context.Context, pool *pgxpool.Pool, table, base string) ([]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT slug FROM `+table+` WHERE slug = $1 OR starts_with(slug, $1 || '-')`, base)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

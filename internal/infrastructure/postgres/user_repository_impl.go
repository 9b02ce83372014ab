package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
)

const userColumns = `id, email, username, password_hash, first_name, last_name, avatar, bio,
	is_active, is_staff, is_superuser, token_version, last_login, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Avatar, &u.Bio, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.TokenVersion,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, first_name, last_name, avatar, bio, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, token_version, created_at, updated_at
	`, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Avatar, u.Bio, u.IsActive, u.IsStaff, u.IsSuperuser)

	return mapErr(row.Scan(&u.ID, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail matches case-insensitively, in line with the users_email_unique index.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, avatar = $3, bio = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`, u.FirstName, u.LastName, u.Avatar, u.Bio, u.ID)
	return mapErr(row.Scan(&u.UpdatedAt))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return mustAffect(r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, token_version = token_version + 1, updated_at = now()
		WHERE id = $2
	`, hash, id))
}

func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	return mustAffect(r.pool.Exec(ctx, `
		UPDATE users
		SET is_active = FALSE, token_version = token_version + 1, updated_at = now()
		WHERE id = $1
	`, id))
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return mustAffect(r.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id))
}

// Delete removes the user; comments cascade and authored posts are kept with a NULL author.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return mustAffect(r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func (r *UserRepository) CountPosts(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM posts WHERE author_id = $1`, userID).Scan(&n)
	return n, mapErr(err)
}

func (r *UserRepository) CountComments(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE author_id = $1`, userID).Scan(&n)
	return n, mapErr(err)
}

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

const uniqueViolation = "23505"

// uniqueFields maps unique constraint/index names from db/migrations to the input field they guard.
var uniqueFields = map[string]string{
	"users_email_unique":     "email",
	"users_username_unique":  "username",
	"categories_name_unique": "name",
	"categories_slug_unique": "slug",
	"posts_slug_unique":      "slug",
}

// mapErr turns driver errors into repository errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
			return &repository.DuplicateError{Field: field}
		}
	}
	return err
}

func mustAffect(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// IsDuplicate reports whether err is a unique violation and on which field.
func IsDuplicate(err error) (string, bool) {
	var de *DuplicateError
	if errors.As(err, &de) {
		return de.Field, true
	}
	return "", false
}

package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the account domain
// Passwords are stored as bcrypt hashes in PasswordHash and never leave the service.
//
// TokenVersion is stamped into every issued JWT; bumping it revokes them all.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       string // object key in avatar storage, empty when unset
	Bio          string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	TokenVersion int
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name the way it is shown on profiles.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

package entity

import "time"

// Post belongs to exactly one Category.
// AuthorID is empty once the author account has been deleted.
type Post struct {
	ID         string
	Title      string
	Slug       string
	Content    string
	CategoryID string
	AuthorID   string
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

package entity

import "time"

// Category groups posts. Deleting a category deletes its posts.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

package models

import "time"

// Todo represents a single task owned by exactly one user. The owner is
// assigned at creation and never changes.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"-"` // owner; enforced server-side, not part of the API shape
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

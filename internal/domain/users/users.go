package users

import (
	"context"

	"github.com/Togather-Foundation/ewm/internal/api/pagination"
)

// User is an account that can organize events and request participation.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Short is the public projection of a user embedded in event views.
type Short struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Short returns the public projection of u.
func (u User) Short() Short {
	return Short{ID: u.ID, Name: u.Name}
}

// NewUser holds the fields required to register a user.
type NewUser struct {
	Name  string
	Email string
}

// Repository persists users. Get returns an error wrapping errs.ErrNotFound
// for unknown ids; Create returns one wrapping errs.ErrConflict when the email
// is already registered.
type Repository interface {
	Create(ctx context.Context, user User) error
	Get(ctx context.Context, id string) (User, error)
	List(ctx context.Context, ids []string, page pagination.Page) ([]User, error)
}

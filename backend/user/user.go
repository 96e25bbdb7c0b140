package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Database when no row matches the given id.
var ErrNotFound = errors.New("User not found")

// User represents a user in the system
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Input is the request body for create and update. Missing fields stay nil
// and reach the store as NULL.
type Input struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type Database interface {
	CreateUser(ctx context.Context, in Input) (int64, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, id string, in Input) (int64, error)
	DeleteUser(ctx context.Context, id string) error
}

package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Phone        string
	IsHost       bool
	// IsActive is cleared by administrators to lock an account out.
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries the columns a caller supplies on insert.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Phone        string
	IsHost       bool
}

type Repository interface {
	// Create returns ErrUsernameTaken or ErrEmailTaken when a unique index is violated.
	Create(ctx context.Context, params NewUser) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// PasswordHasher hides the hashing algorithm from the service.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	CompareDummy(password string)
}

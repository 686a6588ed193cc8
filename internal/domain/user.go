// Package domain holds the plain entities and sentinel errors shared by every layer.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxIdentityLen = 36
	MaxUsernameLen = 36
	// bcrypt ignores everything past 72 bytes
	MaxPasswordLen = 72
)

var (
	ErrUsernameTooLong    = errors.New("username too long")
	ErrUsernameEmpty      = errors.New("username empty")
	ErrPasswordEmpty      = errors.New("password empty")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrUserExists         = errors.New("user exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is the durable user reference issued by the account collaborator.
type Identity string

type User struct {
	ID           Identity  `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string, passwordHash []byte) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return &User{
		ID:           Identity(uuid.NewString()),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func ValidatePassword(password string) error {
	if len(password) == 0 {
		return ErrPasswordEmpty
	}
	if len(password) > MaxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

package core

import (
	"context"

	"github.com/SkyMonder/SkyCalling/internal/domain"
)

// UserStore persists accounts. Usernames are unique ignoring case.
type UserStore interface {
	// Create fails with domain.ErrUserExists when the username is taken.
	Create(ctx context.Context, u *domain.User) error
	ByUsername(ctx context.Context, username string) (*domain.User, error)
	ByID(ctx context.Context, id domain.Identity) (*domain.User, error)
	// Search returns users whose username contains q, ordered by username.
	Search(ctx context.Context, q string, limit int) ([]domain.User, error)
	Close() error
}

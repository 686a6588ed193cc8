package auth

import (
	"context"
	"errors"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Accounts is the registration and login service behind the HTTP API.
type Accounts struct {
	Users  core.UserStore
	Tokens *JWTAuthenticator
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func (a *Accounts) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	cost := a.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	u, err := domain.NewUser(username, hash)
	if err != nil {
		return nil, err
	}
	if err := a.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	log.Info().Str("module", "adapters.auth").Str("identity", string(u.ID)).Str("username", u.Username).Msg("user registered")
	u.PasswordHash = nil
	return u, nil
}

// Login checks the credentials and returns a fresh token.
func (a *Accounts) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := a.Users.ByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := a.Tokens.Issue(u)
	if err != nil {
		return "", nil, err
	}
	u.PasswordHash = nil
	return token, u, nil
}

func (a *Accounts) User(ctx context.Context, id domain.Identity) (*domain.User, error) {
	u, err := a.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = nil
	return u, nil
}

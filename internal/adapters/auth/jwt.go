// Package auth issues and verifies the bearer tokens used to bind a
// signaling connection to an account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTAuthenticator implements core.Authenticator with HS256 tokens whose
// subject is the user's identity.
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	// users, when set, confirms the account still exists.
	users core.UserStore
	now   func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration, users core.UserStore) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}
}

func (a *JWTAuthenticator) Issue(u *domain.User) (string, error) {
	now := a.now()
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" || len(claims.Subject) > domain.MaxIdentityLen {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	if a.users == nil {
		return &domain.User{ID: domain.Identity(claims.Subject), Username: claims.Username}, nil
	}
	u, err := a.users.ByID(ctx, domain.Identity(claims.Subject))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	u.PasswordHash = nil
	return u, nil
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/SkyMonder/SkyCalling/internal/adapters/store"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_IssueAndAuthenticate(t *testing.T) {
	a := NewJWTAuthenticator("secret", time.Hour, nil)
	token, err := a.Issue(&domain.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	u, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("u-1"), u.ID)
	assert.Equal(t, "alice", u.Username)
}

func TestJWT_Rejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", time.Hour, nil)
	ctx := context.Background()

	good, err := a.Issue(&domain.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	other := NewJWTAuthenticator("other", time.Hour, nil)
	forged, err := other.Issue(&domain.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	expired := NewJWTAuthenticator("secret", time.Hour, nil)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(&domain.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":      "",
		"garbage":    "not.a.token",
		"wrong key":  forged,
		"expired":    old,
		"alg none":   none,
		"no subject": noSubject,
		"tampered":   good + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(ctx, token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWT_ChecksStore(t *testing.T) {
	ctx := context.Background()
	users := store.NewMemoryStore()
	u, err := domain.NewUser("alice", []byte("h"))
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, u))

	a := NewJWTAuthenticator("secret", time.Hour, users)
	token, err := a.Issue(u)
	require.NoError(t, err)

	got, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	ghost, err := a.Issue(&domain.User{ID: "ghost", Username: "ghost"})
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, ghost)
	require.ErrorIs(t, err, ErrInvalidToken)
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SkyMonder/SkyCalling/internal/core"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) core.UserStore {
	return map[string]func(t *testing.T) core.UserStore{
		"memory": func(t *testing.T) core.UserStore { return NewMemoryStore() },
		"sqlite": func(t *testing.T) core.UserStore {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func mustUser(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, []byte("hash-"+name))
	require.NoError(t, err)
	return u
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("create and fetch", func(t *testing.T) {
				s := open(t)
				alice := mustUser(t, "Alice")
				require.NoError(t, s.Create(ctx, alice))

				got, err := s.ByUsername(ctx, "alice")
				require.NoError(t, err)
				assert.Equal(t, alice.ID, got.ID)
				assert.Equal(t, "Alice", got.Username)
				assert.Equal(t, []byte("hash-Alice"), got.PasswordHash)

				got, err = s.ByID(ctx, alice.ID)
				require.NoError(t, err)
				assert.Equal(t, "Alice", got.Username)
			})

			t.Run("duplicate username", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Create(ctx, mustUser(t, "bob")))
				require.ErrorIs(t, s.Create(ctx, mustUser(t, "BOB")), domain.ErrUserExists)
			})

			t.Run("not found", func(t *testing.T) {
				s := open(t)
				_, err := s.ByUsername(ctx, "ghost")
				require.ErrorIs(t, err, domain.ErrUserNotFound)
				_, err = s.ByID(ctx, "nope")
				require.ErrorIs(t, err, domain.ErrUserNotFound)
			})

			t.Run("search", func(t *testing.T) {
				s := open(t)
				for _, n := range []string{"carol", "Caroline", "dave", "car_x", "oscar"} {
					require.NoError(t, s.Create(ctx, mustUser(t, n)))
				}

				got, err := s.Search(ctx, "CAR", 0)
				require.NoError(t, err)
				var names []string
				for _, u := range got {
					names = append(names, u.Username)
					assert.Empty(t, u.PasswordHash)
				}
				assert.Equal(t, []string{"car_x", "carol", "Caroline", "oscar"}, names)

				got, err = s.Search(ctx, "r_", 10)
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, "car_x", got[0].Username)

				got, err = s.Search(ctx, "car", 2)
				require.NoError(t, err)
				assert.Len(t, got, 2)

				got, err = s.Search(ctx, "zzz", 10)
				require.NoError(t, err)
				assert.Empty(t, got)
			})
		})
	}
}

package core

import (
	"context"

	"github.com/SkyMonder/SkyCalling/internal/domain"
)

// Authenticator validates a credential token and returns the user it was
// issued for. The result is trusted verbatim.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

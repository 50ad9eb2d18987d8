package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aurxine/quack-quack/internal/session"
)

// ErrUnauthenticated means the token was missing, expired, or unknown to the
// session store. It is terminal for the connection attempt and never retried.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Identity is what a connection carries once admitted.
type Identity struct {
	UserID      string
	DisplayName string
}

// Resolver exchanges a session token for an Identity. Read-only: expiring or
// revoking tokens is the store's business.
type Resolver struct {
	store  session.Store
	logger *slog.Logger
}

func NewResolver(store session.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With(slog.String("component", "identity_resolver")),
	}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := r.store.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolve token: %w", err)
	}

	name, err := r.store.GetUsername(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			r.logger.Warn("Username lookup failed, falling back to user id",
				slog.String("userID", userID),
				slog.Any("error", err),
			)
		}
		name = userID
	}
	return Identity{UserID: userID, DisplayName: name}, nil
}

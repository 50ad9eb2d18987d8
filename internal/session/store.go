// Package session holds the token-to-user mappings behind the gateway. The
// store is treated as an external collaborator: the chat core only ever reads
// from it, while the auth endpoints write tokens on login and drop them on
// logout.
package session

import (
	"context"
	"errors"
	"time"
)

// Key layout used by the Redis backend. The memory backend keeps separate
// maps instead of prefixed keys.
const (
	sessionKeyPrefix  = "session:"
	usernameKeyPrefix = "username:"
)

// ErrNotFound is returned when a token or username key does not exist or has
// expired.
var ErrNotFound = errors.New("session: not found")

type Store interface {
	// Set maps an opaque token to a user id for ttl.
	Set(ctx context.Context, token, userID string, ttl time.Duration) error
	// Get resolves a token to a user id. Missing or expired tokens return
	// ErrNotFound.
	Get(ctx context.Context, token string) (string, error)
	// Delete removes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error

	// SetUsername stores a display name for a user id.
	SetUsername(ctx context.Context, userID, name string) error
	// GetUsername resolves a user id to a display name, ErrNotFound if none
	// was ever stored.
	GetUsername(ctx context.Context, userID string) (string, error)

	Close() error
}

// Package identity covers two narrow contracts: the account provider that the
// auth endpoints consume, and the resolver that turns a session token into an
// identity before a connection is admitted.
package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("identity: account not found")
	ErrEmailTaken     = errors.New("identity: email already registered")
	ErrBadCredentials = errors.New("identity: bad credentials")
)

// Provider is the consumed account-service contract. The real deployment
// would back this with an external auth service; MemoryProvider stands in for
// it in a single process.
type Provider interface {
	// CreateAccount registers a new account and returns its user id.
	CreateAccount(ctx context.Context, email, password string) (string, error)
	// LookupByEmail returns the user id for an email, ErrNotFound if absent.
	LookupByEmail(ctx context.Context, email string) (string, error)
	// Authenticate verifies credentials and returns the user id.
	Authenticate(ctx context.Context, email, password string) (string, error)
}

type account struct {
	userID string
	digest [sha256.Size]byte
}

// MemoryProvider keeps accounts in a mutex-guarded map.
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]account // keyed by email
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{accounts: make(map[string]account)}
}

func (p *MemoryProvider) CreateAccount(_ context.Context, email, password string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return "", ErrEmailTaken
	}
	userID := uuid.NewString()
	p.accounts[email] = account{
		userID: userID,
		digest: sha256.Sum256([]byte(password)),
	}
	return userID, nil
}

func (p *MemoryProvider) LookupByEmail(_ context.Context, email string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acc, ok := p.accounts[email]
	if !ok {
		return "", ErrNotFound
	}
	return acc.userID, nil
}

func (p *MemoryProvider) Authenticate(_ context.Context, email, password string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acc, ok := p.accounts[email]
	if !ok {
		return "", ErrBadCredentials
	}
	digest := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(digest[:], acc.digest[:]) != 1 {
		return "", ErrBadCredentials
	}
	return acc.userID, nil
}

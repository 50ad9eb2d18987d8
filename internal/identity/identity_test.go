package identity_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aurxine/quack-quack/internal/identity"
	"github.com/aurxine/quack-quack/internal/session"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// --- Provider ---

func TestCreateAndAuthenticate(t *testing.T) {
	p := identity.NewMemoryProvider()
	ctx := context.Background()

	uid, err := p.CreateAccount(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if uid == "" {
		t.Fatal("CreateAccount returned empty user id")
	}

	got, err := p.Authenticate(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got != uid {
		t.Errorf("Authenticate returned %q, want %q", got, uid)
	}

	if _, err := p.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, identity.ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for wrong password, got %v", err)
	}
	if _, err := p.Authenticate(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, identity.ErrBadCredentials) {
		t.Errorf("Expected ErrBadCredentials for unknown email, got %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	p := identity.NewMemoryProvider()
	ctx := context.Background()

	if _, err := p.CreateAccount(ctx, "alice@example.com", "pw"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if _, err := p.CreateAccount(ctx, "alice@example.com", "other"); !errors.Is(err, identity.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestLookupByEmail(t *testing.T) {
	p := identity.NewMemoryProvider()
	ctx := context.Background()

	uid, _ := p.CreateAccount(ctx, "alice@example.com", "pw")
	got, err := p.LookupByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("LookupByEmail failed: %v", err)
	}
	if got != uid {
		t.Errorf("LookupByEmail returned %q, want %q", got, uid)
	}

	if _, err := p.LookupByEmail(ctx, "nobody@example.com"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// --- Resolver ---

func newTestResolver(t *testing.T) (*identity.Resolver, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(newTestLogger())
	t.Cleanup(func() { store.Close() })
	return identity.NewResolver(store, newTestLogger()), store
}

func TestResolveValidToken(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	store.Set(ctx, "tok-1", "u1", time.Hour)
	store.SetUsername(ctx, "u1", "alice")

	ident, err := r.Resolve(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ident.UserID != "u1" {
		t.Errorf("Expected user id u1, got %q", ident.UserID)
	}
	if ident.DisplayName != "alice" {
		t.Errorf("Expected display name alice, got %q", ident.DisplayName)
	}
}

func TestResolveFallsBackToUserID(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	store.Set(ctx, "tok-1", "u1", time.Hour)
	// no username stored for u1

	ident, err := r.Resolve(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ident.DisplayName != "u1" {
		t.Errorf("Expected display name to fall back to user id, got %q", ident.DisplayName)
	}
}

func TestResolveMissingToken(t *testing.T) {
	r, _ := newTestResolver(t)

	if _, err := r.Resolve(context.Background(), ""); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for empty token, got %v", err)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	r, _ := newTestResolver(t)

	if _, err := r.Resolve(context.Background(), "never-issued"); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for unknown token, got %v", err)
	}
}

func TestResolveExpiredToken(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	store.Set(ctx, "tok-old", "u1", -time.Second)

	if _, err := r.Resolve(ctx, "tok-old"); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for expired token, got %v", err)
	}
}

// brokenStore fails every token lookup, standing in for a store outage.
type brokenStore struct {
	session.Store
	err error
}

func (s *brokenStore) Get(_ context.Context, _ string) (string, error) {
	return "", s.err
}

func TestResolveStoreOutageIsNotUnauthenticated(t *testing.T) {
	storeErr := errors.New("store unreachable")
	mem := session.NewMemoryStore(newTestLogger())
	t.Cleanup(func() { mem.Close() })
	r := identity.NewResolver(&brokenStore{Store: mem, err: storeErr}, newTestLogger())

	_, err := r.Resolve(context.Background(), "tok-1")
	if err == nil {
		t.Fatal("Expected an error when the store is down")
	}
	// An outage is not a verdict on the token: callers must be able to tell
	// the two apart.
	if errors.Is(err, identity.ErrUnauthenticated) {
		t.Error("Store outage must not be reported as an authentication failure")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("Expected the store error to be wrapped, got %v", err)
	}
}

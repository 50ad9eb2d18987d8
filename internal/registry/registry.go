// Package registry is the authoritative bookkeeping of live connections. One
// Registry exists per process, constructed in server.NewApp and passed
// explicitly to everything that needs it.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadyAdmitted means the same handle was admitted twice. Correct handler
// sequencing makes that impossible, so it is surfaced loudly instead of
// silently overwriting the existing entry.
var ErrAlreadyAdmitted = errors.New("registry: connection already admitted")

// Conn is the slice of the transport the registry and broadcast path need.
// The transport connection stays exclusively owned by its handler; entries
// only hold this reference for delivery and shutdown.
type Conn interface {
	ID() uuid.UUID
	Send(msg []byte) error
	Close(err error)
}

// Entry tags a live connection with its identity metadata. Entries are
// value-like after insertion: nothing mutates them until removal.
type Entry struct {
	Conn        Conn
	UserID      string
	DisplayName string
	// Color is the presentation color in "#rrggbb" form, picked at admission.
	Color      string
	AdmittedAt time.Time
}

type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*Entry),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Admit inserts a new entry for conn. From the moment Admit returns, the
// entry is visible to broadcasts until Remove is called for the same id.
func (r *Registry) Admit(conn Conn, userID, displayName string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if _, exists := r.entries[id]; exists {
		r.logger.Error("Duplicate admission rejected",
			slog.String("connID", id.String()),
			slog.String("userID", userID),
		)
		return nil, ErrAlreadyAdmitted
	}

	entry := &Entry{
		Conn:        conn,
		UserID:      userID,
		DisplayName: displayName,
		Color:       randColor(),
		AdmittedAt:  time.Now(),
	}
	r.entries[id] = entry
	r.logger.Debug("Connection admitted",
		slog.String("connID", id.String()),
		slog.String("userID", userID),
	)
	return entry, nil
}

// Remove deletes the entry for id. Removing an absent id is a no-op, which
// makes double-disconnect races harmless.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	r.logger.Debug("Connection removed", slog.String("connID", id.String()))
}

// Get returns the entry for id, if it is currently live.
func (r *Registry) Get(id uuid.UUID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Snapshot returns a point-in-time copy of the live entries. Concurrent
// admits and removes cannot disturb an iteration over the returned slice; a
// recipient removed mid-broadcast simply fails its delivery attempt.
func (r *Registry) Snapshot() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry)
	}
	return snapshot
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CountByUser reports how many live connections a user currently has.
func (r *Registry) CountByUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entry := range r.entries {
		if entry.UserID == userID {
			n++
		}
	}
	return n
}

func randColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}

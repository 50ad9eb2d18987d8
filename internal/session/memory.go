package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Delay between executions of the expired-token sweep.
const defaultSweepInterval = 5 * time.Minute

type memorySession struct {
	userID   string
	deadline time.Time
}

// MemoryStore is a single-process backend for development and tests. Expired
// tokens are dropped lazily on Get and proactively by a background sweeper.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memorySession
	usernames map[string]string

	stop     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[string]memorySession),
		usernames: make(map[string]string),
		stop:      make(chan struct{}),
		logger:    logger.With(slog.String("component", "session_store_memory")),
	}
	go s.sweep(defaultSweepInterval)
	return s
}

func (s *MemoryStore) Set(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{userID: userID, deadline: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(sess.deadline) {
		delete(s.sessions, token)
		return "", ErrNotFound
	}
	return sess.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) SetUsername(_ context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[userID] = name
	return nil
}

func (s *MemoryStore) GetUsername(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.usernames[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			removed := 0
			for token, sess := range s.sessions {
				if now.After(sess.deadline) {
					delete(s.sessions, token)
					removed++
				}
			}
			s.mu.Unlock()
			if removed > 0 {
				s.logger.Debug("Swept expired sessions", slog.Int("removed", removed))
			}
		}
	}
}

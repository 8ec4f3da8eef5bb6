package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// Registry is an arena of live sessions keyed by ID.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	repo     storage.ChunkRepository
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithRepository persists the chunks and tables of every session created
// by the registry, and lets Open restore sessions from it.
func WithRepository(repo storage.ChunkRepository) Option {
	return func(r *Registry) error {
		r.repo = repo
		return nil
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		sessions: make(map[string]*Session),
		logger:   slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Create starts a session with a random ID.
func (r *Registry) Create() (*Session, error) {
	return r.CreateWithID(uuid.NewString())
}

// CreateWithID starts a session with the given ID.
func (r *Registry) CreateWithID(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, core.ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	s := newSession(id, r.repo, r.logger)
	r.sessions[id] = s
	r.logger.Debug("session created", "session", id)
	return s, nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Open returns the live session with the given ID, or restores it from the
// repository and rebuilds its indexes from the persisted chunks.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if s, err := r.Get(id); err == nil {
		return s, nil
	}
	if r.repo == nil {
		return nil, ErrNoRepository
	}
	if _, err := r.repo.GetSession(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}

	s := newSession(id, r.repo, r.logger)
	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("opening session %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		s.close()
		return existing, nil
	}
	r.sessions[id] = s
	return s, nil
}

// Close tears down a live session and releases its indexes.
// Persisted chunks and tables are kept.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.close()
	r.logger.Debug("session closed", "session", id)
	return nil
}

// Delete closes the session if it is live and removes everything persisted
// for it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.Close(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	if r.repo == nil {
		return nil
	}
	if err := r.repo.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// List returns the IDs of live sessions, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Persisted returns the summaries of every session in the repository.
func (r *Registry) Persisted(ctx context.Context) ([]*core.SessionInfo, error) {
	if r.repo == nil {
		return nil, ErrNoRepository
	}
	return r.repo.ListSessions(ctx)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll tears down every live session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// Package session holds the process-wide session defaults that tool calls
// fall back to when an argument is omitted.
package session

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"xcodemcp/internal/domain"
)

// Backend persists the defaults mapping between process runs.
type Backend interface {
	LoadDefaults(ctx context.Context) (map[string]any, error)
	SaveDefaults(ctx context.Context, defaults map[string]any) error
}

const backendTimeout = 5 * time.Second

// Store is a flat key/value mapping shared by every tool. It is safe for
// concurrent use; all reads and writes go through one mutex.
type Store struct {
	mu      sync.RWMutex
	values  map[string]any
	backend Backend
	logger  *slog.Logger
}

var _ domain.SessionStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBackend persists every mutation through b and seeds the store from it.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore returns an empty store. When a backend is configured the
// previously saved defaults are loaded.
func NewStore(opts ...Option) *Store {
	s := &Store{values: make(map[string]any), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		loaded, err := s.backend.LoadDefaults(ctx)
		if err != nil {
			s.logger.Warn("cannot load session defaults", "err", err)
		}
		for k, v := range loaded {
			s.values[k] = v
		}
	}
	return s
}

// SetDefaults merges partial into the stored mapping. Existing keys are
// overwritten, unspecified keys are retained.
func (s *Store) SetDefaults(partial map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.values[k] = v
	}
	s.persistLocked()
}

// Clear empties the mapping.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
	s.persistLocked()
}

// Delete removes the given keys. Unknown keys are ignored.
func (s *Store) Delete(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	s.persistLocked()
}

// Replace drops the keys in drop and merges set, as one update with one
// backend write. It returns the dropped keys that were actually stored, in
// the order given.
func (s *Store) Replace(set map[string]any, drop []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for _, k := range drop {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			removed = append(removed, k)
		}
	}
	for k, v := range set {
		s.values[k] = v
	}
	s.persistLocked()
	return removed
}

// Get returns the stored value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetAll returns a copy of the mapping.
func (s *Store) GetAll() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// persistLocked writes the current mapping to the backend. Caller holds mu.
// Failures are logged; tool calls never fail because of persistence.
func (s *Store) persistLocked() {
	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := s.backend.SaveDefaults(ctx, maps.Clone(s.values)); err != nil {
		s.logger.Warn("cannot persist session defaults", "err", err)
	}
}

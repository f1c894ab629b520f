// Package memory provides an in-memory config.Store, for tests and for
// running without persistence.
package memory

import (
	"context"
	"sync"

	"ozonedb/internal/config"
)

// Store is an in-memory config.Store implementation. It is safe for
// concurrent use.
type Store struct {
	mu   sync.Mutex
	opts *config.Options
}

var _ config.Store = (*Store)(nil)

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{}
}

// Load returns a copy of the last saved options, or nil if none have
// been saved.
func (s *Store) Load(ctx context.Context) (*config.Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts == nil {
		return nil, nil
	}
	cp := *s.opts
	return &cp, nil
}

// Save replaces the stored options with a copy of opts.
func (s *Store) Save(ctx context.Context, opts *config.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *opts
	s.opts = &cp
	return nil
}

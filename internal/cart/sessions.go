package cart

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sessions keeps one Store per identity. Stores idle for longer than the
// configured TTL are evicted on access; authenticated stores reload from
// persistence, guest carts are gone.
type Sessions struct {
	mu      sync.Mutex
	repo    Repository
	idleTTL time.Duration
	now     func() time.Time
	stores  map[string]*Store
}

// NewSessions builds a registry. repo backs authenticated stores.
func NewSessions(repo Repository, idleTTL time.Duration) (*Sessions, error) {
	if repo == nil {
		return nil, errNoRepository
	}
	return &Sessions{
		repo:    repo,
		idleTTL: idleTTL,
		now:     time.Now,
		stores:  make(map[string]*Store),
	}, nil
}

// Store returns the store for the identity, creating it on first use.
func (s *Sessions) Store(identity Identity) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	key := identity.key()
	if st, ok := s.stores[key]; ok {
		return st
	}
	st := NewStore(identity, s.repo)
	st.now = s.now
	st.touch()
	s.stores[key] = st
	return st
}

// Lookup returns an existing store without creating one.
func (s *Sessions) Lookup(identity Identity) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	st, ok := s.stores[identity.key()]
	return st, ok
}

// Forget discards the store for the identity.
func (s *Sessions) Forget(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, identity.key())
}

// Len returns the number of live stores.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Evict drops idle stores and returns how many were removed.
func (s *Sessions) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.stores)
	s.evictLocked()
	return before - len(s.stores)
}

func (s *Sessions) evictLocked() {
	if s.idleTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.idleTTL)
	for key, st := range s.stores {
		if st.idleSince().Before(cutoff) {
			delete(s.stores, key)
		}
	}
}

// Merge moves a guest cart into the signed-in user's cart. Lines are matched
// by (product, unit label) and quantities add up. The guest store is
// discarded once every line has been merged; on failure the lines not yet
// merged stay in the guest cart so the call can be repeated.
func (s *Sessions) Merge(ctx context.Context, guestID string, user Identity) (*Store, int, error) {
	if !user.Authenticated {
		return nil, 0, fmt.Errorf("%w: merge target must be authenticated", ErrInvalidInput)
	}
	target := s.Store(user)
	guest, ok := s.Lookup(Guest(guestID))
	if !ok {
		return target, 0, nil
	}
	if err := target.Load(ctx); err != nil {
		return target, 0, err
	}
	lines := guest.Items()
	merged, err := target.absorb(ctx, lines)
	if err != nil {
		guest.drop(merged)
		return target, len(merged), err
	}
	s.Forget(Guest(guestID))
	return target, len(merged), nil
}

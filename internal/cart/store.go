package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/pricing"
)

// Repository persists the line items of authenticated owners.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]LineItem, error)
	// Upsert inserts the line or, when (owner, product, unit label) already
	// exists, adds its quantity to the stored row. The stored row is returned.
	Upsert(ctx context.Context, item LineItem) (LineItem, error)
	UpdateQuantity(ctx context.Context, ownerID, id string, quantity int) error
	Delete(ctx context.Context, ownerID, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// Store holds the in-memory cart of one identity. Authenticated stores write
// through to the Repository; guest stores live only in memory.
type Store struct {
	mu       sync.Mutex
	identity Identity
	repo     Repository
	items    []LineItem
	now      func() time.Time

	// lastUsed is unix nanoseconds. It is read without mu so eviction never
	// waits on a store that is in the middle of a persistence call.
	lastUsed atomic.Int64
}

// NewStore returns an empty store for the identity. repo is ignored for guests.
func NewStore(identity Identity, repo Repository) *Store {
	if !identity.Authenticated {
		repo = nil
	}
	s := &Store{identity: identity, repo: repo, now: time.Now}
	s.touch()
	return s
}

// Owner returns the identity the store is bound to.
func (s *Store) Owner() Identity {
	return s.identity
}

func (s *Store) persistent() bool {
	return s.repo != nil
}

func (s *Store) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Load replaces the in-memory view with the persisted rows. On failure the
// previous view is kept as is.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if !s.persistent() {
		return nil
	}
	rows, err := s.repo.ListByOwner(ctx, s.identity.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	s.items = append(make([]LineItem, 0, len(rows)), rows...)
	return nil
}

// Items returns a copy of the tracked line items.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LineItem(nil), s.items...)
}

// Len returns the number of tracked line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums FinalPrice * Quantity over every tracked line.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalOf(s.items)
}

// TotalOf sums FinalPrice * Quantity over items.
func TotalOf(items []LineItem) decimal.Decimal {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: it.Quantity, FinalPrice: it.FinalPrice})
	}
	return pricing.Total(lines)
}

func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfKey(productID, unitLabel string) int {
	for i, it := range s.items {
		if it.Matches(productID, unitLabel) {
			return i
		}
	}
	return -1
}

// Add puts one unit of product in the selected unit into the cart. A repeat
// add of the same (product, unit label) increments the existing line.
func (s *Store) Add(ctx context.Context, product catalog.Product, unit catalog.UnitOption) (LineItem, error) {
	if !product.Sellable() {
		return LineItem{}, fmt.Errorf("%w: product %q has no positive price", ErrInvalidInput, product.ID)
	}
	if !unit.Valid() {
		return LineItem{}, fmt.Errorf("%w: unit option %q", ErrInvalidInput, unit.Label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if i := s.indexOfKey(product.ID, unit.Label); i >= 0 {
		qty := s.items[i].Quantity + 1
		if s.persistent() {
			if err := s.repo.UpdateQuantity(ctx, s.identity.ID, s.items[i].ID, qty); err != nil {
				return LineItem{}, fmt.Errorf("%w: %w", ErrSave, err)
			}
		}
		s.items[i].Quantity = qty
		return s.items[i], nil
	}

	item := NewLineItem(s.identity.ID, product, unit)
	if !s.persistent() {
		item.ID = uuid.NewString()
		s.items = append(s.items, item)
		return item, nil
	}
	stored, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return LineItem{}, fmt.Errorf("%w: %w", ErrSave, err)
	}
	s.items = append(s.items, stored)
	return stored, nil
}

// UpdateQuantity sets the quantity of a tracked line. A quantity of zero or
// less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.persistent() {
		if err := s.repo.UpdateQuantity(ctx, s.identity.ID, id, quantity); err != nil {
			return fmt.Errorf("%w: %w", ErrSave, err)
		}
	}
	s.items[i].Quantity = quantity
	return nil
}

// Remove drops a line. Removing an absent id succeeds. The local removal is
// kept even when the persisted delete fails; that failure returns ErrRemove.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	if !s.persistent() {
		return nil
	}
	if err := s.repo.Delete(ctx, s.identity.ID, id); err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}
	return nil
}

// Clear deletes every persisted row of the owner, then empties the view.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.persistent() {
		if err := s.repo.DeleteByOwner(ctx, s.identity.ID); err != nil {
			return fmt.Errorf("%w: %w", ErrClear, err)
		}
	}
	s.items = nil
	return nil
}

// absorb merges foreign lines into this store by (product, unit label).
// Quantities add and the incoming frozen prices are kept for new lines. It
// returns the ids of the lines merged before any failure.
func (s *Store) absorb(ctx context.Context, lines []LineItem) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	merged := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			merged = append(merged, line.ID)
			continue
		}
		if i := s.indexOfKey(line.ProductID, line.UnitLabel()); i >= 0 {
			qty := s.items[i].Quantity + line.Quantity
			if s.persistent() {
				if err := s.repo.UpdateQuantity(ctx, s.identity.ID, s.items[i].ID, qty); err != nil {
					return merged, fmt.Errorf("%w: %w", ErrSave, err)
				}
			}
			s.items[i].Quantity = qty
			merged = append(merged, line.ID)
			continue
		}
		item := line
		item.OwnerID = s.identity.ID
		if s.persistent() {
			item.ID = ""
			stored, err := s.repo.Upsert(ctx, item)
			if err != nil {
				return merged, fmt.Errorf("%w: %w", ErrSave, err)
			}
			item = stored
		} else {
			item.ID = uuid.NewString()
		}
		s.items = append(s.items, item)
		merged = append(merged, line.ID)
	}
	return merged, nil
}

// drop removes lines from memory only.
func (s *Store) drop(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if _, ok := gone[it.ID]; !ok {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

var errNoRepository = errors.New("cart: repository is required for authenticated carts")

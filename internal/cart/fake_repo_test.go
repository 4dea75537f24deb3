package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

var errBackend = errors.New("backend unavailable")

// memRepo is an in-memory Repository honouring the (owner, product, unit)
// uniqueness of the real table.
type memRepo struct {
	mu      sync.Mutex
	rows    []LineItem
	seq     int
	calls   []string
	failOn  map[string]error
	listErr error
}

func newMemRepo() *memRepo {
	return &memRepo{failOn: map[string]error{}}
}

func (m *memRepo) fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[op] = err
}

func (m *memRepo) record(op string) error {
	m.calls = append(m.calls, op)
	return m.failOn[op]
}

func (m *memRepo) ListByOwner(_ context.Context, ownerID string) ([]LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("list"); err != nil {
		return nil, err
	}
	var out []LineItem
	for _, r := range m.rows {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Upsert(_ context.Context, item LineItem) (LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("upsert"); err != nil {
		return LineItem{}, err
	}
	for i, r := range m.rows {
		if r.OwnerID == item.OwnerID && r.Matches(item.ProductID, item.UnitLabel()) {
			m.rows[i].Quantity += item.Quantity
			return m.rows[i], nil
		}
	}
	m.seq++
	item.ID = "row-" + strconv.Itoa(m.seq)
	m.rows = append(m.rows, item)
	return item, nil
}

func (m *memRepo) UpdateQuantity(_ context.Context, ownerID, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("update"); err != nil {
		return err
	}
	for i, r := range m.rows {
		if r.OwnerID == ownerID && r.ID == id {
			m.rows[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("delete"); err != nil {
		return err
	}
	for i, r := range m.rows {
		if r.OwnerID == ownerID && r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memRepo) DeleteByOwner(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("clear"); err != nil {
		return err
	}
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.OwnerID != ownerID {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

func (m *memRepo) count(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func (m *memRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kombee/eshop-storefront/internal/domain"
	"github.com/kombee/eshop-storefront/internal/store"
)

// maxTrackedVisitors bounds the in-memory cart map. Visitor ids are
// client-supplied cookie values, so the map must not grow with every id a
// client invents; evicted carts rehydrate from the store.
const maxTrackedVisitors = 10000

// Manager owns every visitor's cart. It knows nothing about sessions or the
// catalog. All operations are total: unknown ids are no-ops, never errors.
// Mutations apply in memory first and then write through to the store; a
// persistence failure comes back as a recoverable warning while the in-memory
// cart keeps the change.
type Manager struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	store store.Store
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		carts: make(map[string]*domain.Cart),
		store: st,
	}
}

// AddItem puts a product in the visitor's cart. A zero quantity defaults to 1.
// If the product is already present its quantity is raised by the incoming
// amount and the first-seen title/price/image snapshot is kept; otherwise the
// line is appended, preserving insertion order.
func (m *Manager) AddItem(ctx context.Context, visitorID string, line domain.CartLine) error {
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	if line.ID == "" || line.Quantity < 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.loadLocked(ctx, visitorID)
	found := false
	for i := range c.Lines {
		if c.Lines[i].ID == line.ID {
			c.Lines[i].Quantity += line.Quantity
			found = true
			break
		}
	}
	if !found {
		c.Lines = append(c.Lines, line)
	}

	// the mutated cart is authoritative even when rehydration was degraded
	m.rememberLocked(visitorID, c)
	return m.persistLocked(ctx, visitorID, c)
}

// UpdateQuantity sets the quantity on an existing line. A quantity of zero or
// less removes the line. An unknown id is a no-op.
func (m *Manager) UpdateQuantity(ctx context.Context, visitorID, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.loadLocked(ctx, visitorID)
	for i := range c.Lines {
		if c.Lines[i].ID != id {
			continue
		}
		if quantity <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = quantity
		}
		m.rememberLocked(visitorID, c)
		return m.persistLocked(ctx, visitorID, c)
	}
	return nil
}

// RemoveItem drops the line with the given id. An unknown id is a no-op.
func (m *Manager) RemoveItem(ctx context.Context, visitorID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.loadLocked(ctx, visitorID)
	for i := range c.Lines {
		if c.Lines[i].ID == id {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			m.rememberLocked(visitorID, c)
			return m.persistLocked(ctx, visitorID, c)
		}
	}
	return nil
}

// Clear empties the cart and its persisted copy.
func (m *Manager) Clear(ctx context.Context, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rememberLocked(visitorID, &domain.Cart{})

	if err := m.store.Delete(ctx, cartKey(visitorID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("cart clear failed for visitor %s: %v", visitorID, err)
		return fmt.Errorf("clear persisted cart: %w", err)
	}
	return nil
}

// Items returns a copy of the visitor's lines in insertion order. Callers may
// not reach the manager's state through the returned slice.
func (m *Manager) Items(ctx context.Context, visitorID string) []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.loadLocked(ctx, visitorID)
	out := make([]domain.CartLine, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// TotalCount is the sum of all line quantities.
func (m *Manager) TotalCount(ctx context.Context, visitorID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, visitorID).TotalCount()
}

// TotalPrice is the sum of price times quantity over all lines.
func (m *Manager) TotalPrice(ctx context.Context, visitorID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, visitorID).TotalPrice()
}

// loadLocked returns the visitor's cart, rehydrating from the store the first
// time a visitor is seen. A transient read failure degrades to an empty cart
// for this call only, without memoizing it, so the next call retries and the
// persisted lines are never shadowed by a blip. Callers must hold m.mu.
func (m *Manager) loadLocked(ctx context.Context, visitorID string) *domain.Cart {
	if c, ok := m.carts[visitorID]; ok {
		return c
	}

	c := &domain.Cart{}
	data, err := m.store.Get(ctx, cartKey(visitorID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("cart rehydrate failed for visitor %s: %v", visitorID, err)
			return c
		}
	} else if err := json.Unmarshal(data, c); err != nil {
		log.Printf("discarding malformed persisted cart for visitor %s: %v", visitorID, err)
		c = &domain.Cart{}
	}

	m.rememberLocked(visitorID, c)
	return c
}

// rememberLocked memoizes the visitor's cart, evicting an arbitrary entry once
// the map is full. Callers must hold m.mu.
func (m *Manager) rememberLocked(visitorID string, c *domain.Cart) {
	if _, ok := m.carts[visitorID]; !ok && len(m.carts) >= maxTrackedVisitors {
		for id := range m.carts {
			delete(m.carts, id)
			break
		}
	}
	m.carts[visitorID] = c
}

// persistLocked writes the full cart snapshot through to the store. The
// in-memory cart already holds the mutation; the caller treats the returned
// error as a warning, not a rollback.
func (m *Manager) persistLocked(ctx context.Context, visitorID string, c *domain.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := m.store.Set(ctx, cartKey(visitorID), payload); err != nil {
		log.Printf("cart persist failed for visitor %s: %v", visitorID, err)
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func cartKey(visitorID string) string {
	return "cart:" + visitorID
}

package session

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

// maxTrackedVisitors bounds the in-memory state map. Visitor ids are
// client-supplied cookie values, so the map must not grow with every id a
// client invents; evicted sessions rehydrate from the store.
const maxTrackedVisitors = 10000

// Manager owns the authentication state of every visitor. It knows nothing
// about the cart or the catalog. Mutations update the in-memory state first and
// then write through to the store; a persistence failure is returned as a
// recoverable warning and never rolls back the in-memory change.
type Manager struct {
	mu    sync.RWMutex
	state map[string]domain.Session
	store store.Store
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		state: make(map[string]domain.Session),
		store: st,
	}
}

// Login stores the token and derived identity for the visitor and persists
// them so a later visit with the same cookie stays logged in.
func (m *Manager) Login(ctx context.Context, visitorID, token, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := domain.Session{Token: token, Username: username}
	m.rememberLocked(visitorID, s)

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := m.store.Set(ctx, sessionKey(visitorID), payload); err != nil {
		log.Printf("session persist failed for visitor %s: %v", visitorID, err)
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Logout clears the token and identity along with the persisted copy. The
// visitor's cart is deliberately left untouched; it is not identity-scoped.
func (m *Manager) Logout(ctx context.Context, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.state, visitorID)

	if err := m.store.Delete(ctx, sessionKey(visitorID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("session clear failed for visitor %s: %v", visitorID, err)
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

// Current returns the visitor's session, rehydrating from the store the first
// time a visitor is seen. A persisted token is trusted as-is: no validity check
// is made against the remote API, so a revoked token stays logged in until the
// visitor logs out.
func (m *Manager) Current(ctx context.Context, visitorID string) domain.Session {
	m.mu.RLock()
	s, ok := m.state[visitorID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.state[visitorID]; ok {
		return s
	}

	s, settled := m.rehydrate(ctx, visitorID)
	if settled {
		m.rememberLocked(visitorID, s)
	}
	return s
}

// rehydrate reads the persisted session. The second return is false on a
// transient read failure, in which case the visitor is anonymous for this call
// only and the result must not be memoized; the next call retries, so a store
// blip never permanently shadows a logged-in session.
func (m *Manager) rehydrate(ctx context.Context, visitorID string) (domain.Session, bool) {
	data, err := m.store.Get(ctx, sessionKey(visitorID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, true
		}
		log.Printf("session rehydrate failed for visitor %s: %v", visitorID, err)
		return domain.Session{}, false
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("discarding malformed persisted session for visitor %s: %v", visitorID, err)
		return domain.Session{}, true
	}
	return s, true
}

// rememberLocked memoizes the visitor's session, evicting an arbitrary entry
// once the map is full. Callers must hold m.mu for writing.
func (m *Manager) rememberLocked(visitorID string, s domain.Session) {
	if _, ok := m.state[visitorID]; !ok && len(m.state) >= maxTrackedVisitors {
		for id := range m.state {
			delete(m.state, id)
			break
		}
	}
	m.state[visitorID] = s
}

func sessionKey(visitorID string) string {
	return "session:" + visitorID
}

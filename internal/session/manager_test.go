package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombee/eshop-storefront/internal/cart"
	"github.com/kombee/eshop-storefront/internal/domain"
	"github.com/kombee/eshop-storefront/internal/store"
)

func TestLoginLogout(t *testing.T) {
	sut := NewManager(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, sut.Login(ctx, "v1", "tok-123", "alice"))

	s := sut.Current(ctx, "v1")
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "tok-123", s.Token)

	require.NoError(t, sut.Logout(ctx, "v1"))

	s = sut.Current(ctx, "v1")
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Username)
}

func TestCurrent_AnonymousByDefault(t *testing.T) {
	sut := NewManager(store.NewMemoryStore())

	s := sut.Current(context.Background(), "nobody")
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token)
}

func TestCurrent_RehydratesPersistedToken(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	payload, err := json.Marshal(domain.Session{Token: "tok-123", Username: "alice"})
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, sessionKey("v1"), payload))

	// fresh manager, as after a process restart; the token is trusted without
	// any validity check against the remote API
	sut := NewManager(st)
	s := sut.Current(ctx, "v1")
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "alice", s.Username)
}

func TestCurrent_MalformedPersistedSessionIsAnonymous(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, sessionKey("v1"), []byte("{not json")))

	sut := NewManager(st)
	assert.False(t, sut.Current(ctx, "v1").IsLoggedIn())
}

func TestLogout_ClearsPersistedCopy(t *testing.T) {
	st := store.NewMemoryStore()
	sut := NewManager(st)
	ctx := context.Background()

	require.NoError(t, sut.Login(ctx, "v1", "tok-123", "alice"))
	require.NoError(t, sut.Logout(ctx, "v1"))

	_, err := st.Get(ctx, sessionKey("v1"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// a fresh manager over the same store must see the visitor as anonymous
	assert.False(t, NewManager(st).Current(ctx, "v1").IsLoggedIn())
}

func TestLogout_LeavesCartUntouched(t *testing.T) {
	st := store.NewMemoryStore()
	sessions := NewManager(st)
	carts := cart.NewManager(st)
	ctx := context.Background()

	require.NoError(t, carts.AddItem(ctx, "v1", domain.CartLine{ID: "p1", Title: "T", Price: 100, Quantity: 2}))
	require.NoError(t, sessions.Login(ctx, "v1", "tok-123", "alice"))
	require.NoError(t, sessions.Logout(ctx, "v1"))

	items := carts.Items(ctx, "v1")
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

type failingStore struct {
	err error
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f *failingStore) Set(context.Context, string, []byte) error   { return f.err }
func (f *failingStore) Delete(context.Context, string) error        { return f.err }

func TestLogin_PersistFailureIsWarningNotRollback(t *testing.T) {
	sut := NewManager(&failingStore{err: errors.New("redis down")})
	ctx := context.Background()

	err := sut.Login(ctx, "v1", "tok-123", "alice")
	require.ErrorContains(t, err, "redis down")

	// the in-memory session survives for the life of the process
	assert.True(t, sut.Current(ctx, "v1").IsLoggedIn())
}

// flakyStore fails the next N reads, then delegates to the wrapped store.
type flakyStore struct {
	store.Store
	failures int
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("redis: i/o timeout")
	}
	return f.Store.Get(ctx, key)
}

func TestCurrent_TransientReadFailureIsRetried(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, NewManager(st).Login(ctx, "v1", "tok-123", "alice"))

	sut := NewManager(&flakyStore{Store: st, failures: 1})

	// the failed read degrades to anonymous for this call only
	assert.False(t, sut.Current(ctx, "v1").IsLoggedIn())

	// once the store recovers, the persisted session comes back
	s := sut.Current(ctx, "v1")
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "tok-123", s.Token)
}

func TestTrackedVisitorsAreBounded(t *testing.T) {
	sut := NewManager(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, sut.Login(ctx, "first", "tok-123", "alice"))

	for i := 0; i < maxTrackedVisitors+10; i++ {
		sut.Current(ctx, fmt.Sprintf("v%d", i))
	}

	sut.mu.RLock()
	tracked := len(sut.state)
	sut.mu.RUnlock()
	assert.LessOrEqual(t, tracked, maxTrackedVisitors)

	// whether or not "first" was evicted, its persisted session still reads back
	assert.True(t, sut.Current(ctx, "first").IsLoggedIn())
}

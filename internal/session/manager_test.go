package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/models"
	"studentdesk/internal/repository/memstore"
)

type failingStore struct{}

func (failingStore) Save(context.Context, models.Session) error { return errors.New("store down") }
func (failingStore) Get(context.Context, string) (models.Session, error) {
	return models.Session{}, errors.New("store down")
}
func (failingStore) Delete(context.Context, string) error { return nil }

func TestManagerCreateAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memstore.NewSessionRepository(), time.Hour)

	handle, err := manager.Create(ctx, "", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, handle.Token)

	user, ok := manager.CurrentUser(ctx, handle.Token)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)

	_, ok = manager.CurrentUser(ctx, "unknown-token")
	assert.False(t, ok)
	_, ok = manager.CurrentUser(ctx, "")
	assert.False(t, ok)
}

func TestManagerCreateRegeneratesToken(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewSessionRepository()
	manager := NewManager(store, time.Hour)

	first, err := manager.Create(ctx, "", "alice")
	require.NoError(t, err)
	second, err := manager.Create(ctx, first.Token, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	_, ok := manager.CurrentUser(ctx, first.Token)
	assert.False(t, ok)
	_, ok = manager.CurrentUser(ctx, second.Token)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestManagerDestroyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memstore.NewSessionRepository(), time.Hour)

	handle, err := manager.Create(ctx, "", "alice")
	require.NoError(t, err)

	require.NoError(t, manager.Destroy(ctx, handle.Token))
	require.NoError(t, manager.Destroy(ctx, handle.Token))
	require.NoError(t, manager.Destroy(ctx, ""))

	_, ok := manager.CurrentUser(ctx, handle.Token)
	assert.False(t, ok)
}

func TestManagerExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	manager := NewManager(memstore.NewSessionRepository().WithClock(clock), time.Hour).WithClock(clock)
	handle, err := manager.Create(ctx, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), handle.ExpiresAt)

	now = now.Add(59 * time.Minute)
	_, ok := manager.CurrentUser(ctx, handle.Token)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = manager.CurrentUser(ctx, handle.Token)
	assert.False(t, ok)
}

func TestManagerCreateWrapsStoreFailure(t *testing.T) {
	manager := NewManager(failingStore{}, time.Hour)

	_, err := manager.Create(context.Background(), "", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionFailed)
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitsync/internal/model"
)

// fakeStore is an in-memory Store that records writes and can be told
// to fail.
type fakeStore struct {
	items   map[string][]model.SyncedItem // userID -> items
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string][]model.SyncedItem)}
}

var errStoreDown = errors.New("store unavailable")

func (s *fakeStore) List(_ context.Context, userID string) ([]model.SyncedItem, error) {
	if s.failing {
		return nil, errStoreDown
	}
	out := make([]model.SyncedItem, len(s.items[userID]))
	copy(out, s.items[userID])
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, userID string, item model.SyncedItem) error {
	if s.failing {
		return errStoreDown
	}
	s.items[userID] = append([]model.SyncedItem{item}, s.items[userID]...)
	return nil
}

func (s *fakeStore) Update(_ context.Context, userID string, item model.SyncedItem) error {
	if s.failing {
		return errStoreDown
	}
	for i, existing := range s.items[userID] {
		if existing.ID == item.ID {
			s.items[userID][i] = item
			return nil
		}
	}
	return fmt.Errorf("synced item %s not found", item.ID)
}

func (s *fakeStore) Delete(_ context.Context, userID, id string) error {
	if s.failing {
		return errStoreDown
	}
	for i, existing := range s.items[userID] {
		if existing.ID == id {
			s.items[userID] = append(s.items[userID][:i], s.items[userID][i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestReconciler(t *testing.T, store Store, deviceID string) *Reconciler {
	t.Helper()
	r := New(Session{UserID: "user-1", DeviceID: deviceID}, store, zap.NewNop())
	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("data_%d", seq)
	}
	clock := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func TestAddThenLoadRoundTrip(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	require.NoError(t, r.Load(ctx))
	assert.Equal(t, StatusConnected, r.Status())

	first, err := r.Add(ctx, `{"kind":"note"}`)
	require.NoError(t, err)
	second, err := r.Add(ctx, `{"kind":"habit"}`)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "device-a", first.DeviceID)
	assert.Greater(t, second.LastModified, first.LastModified)

	// A fresh reconciler sees the same items, newest write first.
	other := newTestReconciler(t, store, "device-b")
	require.NoError(t, other.Load(ctx))
	items := other.Items()
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestUpdateIncrementsVersion(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	item, err := r.Add(ctx, "v1")
	require.NoError(t, err)

	updated, err := r.Update(ctx, item.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "v2", updated.Content)
	assert.Greater(t, updated.LastModified, item.LastModified)

	_, err = r.Update(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	item, err := r.Add(ctx, "doomed")
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, item.ID))
	assert.Empty(t, r.Items())

	// Second delete of the same id succeeds without effect.
	require.NoError(t, r.Delete(ctx, item.ID))
	require.NoError(t, r.Delete(ctx, "never-existed"))
}

func TestSelfEchoLeavesMirrorUntouched(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	item, err := r.Add(ctx, "original")
	require.NoError(t, err)
	before := r.Items()

	// The broadcast of the device's own write arrives back.
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-1",
		Type:   model.EventInsert,
		UserID: "user-1",
		New:    item,
	})
	assert.Equal(t, before, r.Items())

	updated, err := r.Update(ctx, item.ID, "changed")
	require.NoError(t, err)
	before = r.Items()

	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-2",
		Type:   model.EventUpdate,
		UserID: "user-1",
		New:    updated,
	})
	assert.Equal(t, before, r.Items())
}

func TestRemoteInsertFromOtherDevice(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	mine, err := r.Add(ctx, "mine")
	require.NoError(t, err)

	remote := model.SyncedItem{
		ID:           "data_remote_1",
		Content:      "theirs",
		DeviceID:     "device-b",
		LastModified: mine.LastModified + 1000,
		Version:      1,
	}
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-1",
		Type:   model.EventInsert,
		UserID: "user-1",
		New:    &remote,
	})

	items := r.Items()
	require.Len(t, items, 2)
	assert.Equal(t, remote.ID, items[0].ID)

	// Replaying the same insert does not duplicate the item.
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-1-replay",
		Type:   model.EventInsert,
		UserID: "user-1",
		New:    &remote,
	})
	assert.Len(t, r.Items(), 2)

	assert.Equal(t, []string{"device-b"}, r.ConnectedDevices())
}

func TestStaleRemoteUpdateDiscarded(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	item, err := r.Add(ctx, "local")
	require.NoError(t, err)

	stale := model.SyncedItem{
		ID:           item.ID,
		Content:      "from the past",
		DeviceID:     "device-b",
		LastModified: item.LastModified - 5000,
		Version:      item.Version + 1,
	}
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-stale",
		Type:   model.EventUpdate,
		UserID: "user-1",
		New:    &stale,
	})

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "local", items[0].Content)

	fresh := stale
	fresh.Content = "from the future"
	fresh.LastModified = item.LastModified + 5000
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-fresh",
		Type:   model.EventUpdate,
		UserID: "user-1",
		New:    &fresh,
	})
	assert.Equal(t, "from the future", r.Items()[0].Content)
}

func TestRemoteUpdateForUnknownItemIgnored(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	require.NoError(t, r.Load(context.Background()))

	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-1",
		Type:   model.EventUpdate,
		UserID: "user-1",
		New: &model.SyncedItem{
			ID:           "ghost",
			DeviceID:     "device-b",
			LastModified: 1,
			Version:      2,
		},
	})
	assert.Empty(t, r.Items())
}

func TestRemoteDeleteAppliesRegardlessOfOrigin(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	item, err := r.Add(ctx, "shared")
	require.NoError(t, err)

	// Even a delete stamped with this device's id removes the item.
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-del",
		Type:   model.EventDelete,
		UserID: "user-1",
		Old:    &model.SyncedItem{ID: item.ID},
	})
	assert.Empty(t, r.Items())
}

func TestEveryEventRefreshesLastSynced(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	require.NoError(t, r.Load(context.Background()))
	before := r.LastSynced()

	// Even a self-echo bumps the sync timestamp.
	r.HandleRemoteChange(model.ChangeEvent{
		ID:     "ev-echo",
		Type:   model.EventInsert,
		UserID: "user-1",
		New:    &model.SyncedItem{ID: "x", DeviceID: "device-a"},
	})
	assert.True(t, r.LastSynced().After(before))
}

func TestStatusTransitions(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	assert.Equal(t, StatusDisconnected, r.Status())

	store.failing = true
	err := r.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusError, r.Status())

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "load", netErr.Op)
	assert.ErrorIs(t, err, errStoreDown)

	store.failing = false
	require.NoError(t, r.Load(ctx))
	assert.Equal(t, StatusConnected, r.Status())

	store.failing = true
	_, err = r.Add(ctx, "wont stick")
	require.Error(t, err)
	assert.Equal(t, StatusError, r.Status())
	assert.Empty(t, r.Items())
}

// blockingStore parks Insert until released so a test can observe the
// reconciler mid-write.
type blockingStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Insert(ctx context.Context, userID string, item model.SyncedItem) error {
	close(s.entered)
	<-s.release
	return s.fakeStore.Insert(ctx, userID, item)
}

func TestWritesReportSyncingWhileInFlight(t *testing.T) {
	store := &blockingStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	require.NoError(t, r.Load(ctx))
	require.Equal(t, StatusConnected, r.Status())

	done := make(chan error, 1)
	go func() {
		_, err := r.Add(ctx, "in flight")
		done <- err
	}()

	<-store.entered
	assert.Equal(t, StatusSyncing, r.Status())

	close(store.release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusConnected, r.Status())
}

func TestGeneratedIDUsesInjectedClock(t *testing.T) {
	r := New(Session{UserID: "user-1", DeviceID: "device-a"}, newFakeStore(), zap.NewNop())
	fixed := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	item, err := r.Add(context.Background(), "clocked")
	require.NoError(t, err)

	prefix := fmt.Sprintf("data_%d_", fixed.UnixMilli())
	assert.True(t, strings.HasPrefix(item.ID, prefix),
		"id %q should start with %q", item.ID, prefix)
	assert.Equal(t, fixed.UnixMilli(), item.LastModified)
}

func TestForceSynchronizeDiscardsDrift(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(t, store, "device-a")
	ctx := context.Background()

	_, err := r.Add(ctx, "kept")
	require.NoError(t, err)

	// An insert the broadcast leg missed exists only in the store.
	store.items["user-1"] = append(store.items["user-1"], model.SyncedItem{
		ID:           "data_missed",
		Content:      "missed broadcast",
		DeviceID:     "device-b",
		LastModified: 1,
		Version:      1,
	})

	require.NoError(t, r.ForceSynchronize(ctx))
	assert.Len(t, r.Items(), 2)
}

func TestManagerFanOut(t *testing.T) {
	store := newFakeStore()
	m := NewManager(store, zap.NewNop())
	ctx := context.Background()

	a := m.Get(Session{UserID: "user-1", DeviceID: "device-a"})
	b := m.Get(Session{UserID: "user-1", DeviceID: "device-b"})
	other := m.Get(Session{UserID: "user-2", DeviceID: "device-z"})

	// Get is stable per session.
	assert.Same(t, a, m.Get(Session{UserID: "user-1", DeviceID: "device-a"}))

	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))
	require.NoError(t, other.Load(ctx))

	item := model.SyncedItem{
		ID:           "data_1",
		Content:      "hello",
		DeviceID:     "device-a",
		LastModified: 100,
		Version:      1,
	}
	m.Dispatch(model.ChangeEvent{
		ID:     "ev-1",
		Type:   model.EventInsert,
		UserID: "user-1",
		New:    &item,
	})

	// The originating device skips its echo, the sibling applies it and
	// the unrelated user never sees it.
	assert.Empty(t, a.Items())
	assert.Len(t, b.Items(), 1)
	assert.Empty(t, other.Items())

	m.Remove(Session{UserID: "user-1", DeviceID: "device-b"})
	fresh := m.Get(Session{UserID: "user-1", DeviceID: "device-b"})
	assert.NotSame(t, b, fresh)
}

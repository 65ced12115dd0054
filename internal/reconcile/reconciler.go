package reconcile

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"habitsync/internal/model"
	"habitsync/pkg/metrics"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusSyncing      Status = "syncing"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Store is the shared remote store the reconciler writes through to.
// *repository.SyncedDataRepository satisfies it.
type Store interface {
	List(ctx context.Context, userID string) ([]model.SyncedItem, error)
	Insert(ctx context.Context, userID string, item model.SyncedItem) error
	Update(ctx context.Context, userID string, item model.SyncedItem) error
	Delete(ctx context.Context, userID, id string) error
}

// Session identifies one device of one user.
type Session struct {
	UserID   string
	DeviceID string
}

// Reconciler keeps one device's local mirror of the user's synced items
// consistent with the shared store. Writes go store-first: the mirror is
// only updated after the store confirms, so a failed write leaves local
// state untouched. Remote changes arrive through HandleRemoteChange.
type Reconciler struct {
	session Session
	store   Store
	logger  *zap.Logger

	mu         sync.RWMutex
	items      []model.SyncedItem // newest write first
	status     Status
	lastSynced time.Time

	lockMu  sync.Mutex
	idLocks map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

func New(session Session, store Store, logger *zap.Logger) *Reconciler {
	r := &Reconciler{
		session: session,
		store:   store,
		logger: logger.With(
			zap.String("user_id", session.UserID),
			zap.String("device_id", session.DeviceID),
		),
		status:  StatusDisconnected,
		idLocks: make(map[string]*sync.Mutex),
		now:     time.Now,
	}
	r.newID = r.generateItemID
	return r
}

func (r *Reconciler) generateItemID() string {
	return fmt.Sprintf("data_%d_%03d", r.now().UnixMilli(), rand.Intn(1000))
}

func (r *Reconciler) Session() Session {
	return r.session
}

func (r *Reconciler) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Reconciler) LastSynced() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSynced
}

// Items returns a copy of the mirror, newest write first.
func (r *Reconciler) Items() []model.SyncedItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.SyncedItem, len(r.items))
	copy(out, r.items)
	return out
}

// ConnectedDevices lists the distinct device ids seen in the mirror,
// excluding this device's own.
func (r *Reconciler) ConnectedDevices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var devices []string
	for _, item := range r.items {
		if item.DeviceID == "" || item.DeviceID == r.session.DeviceID || seen[item.DeviceID] {
			continue
		}
		seen[item.DeviceID] = true
		devices = append(devices, item.DeviceID)
	}
	return devices
}

// Load replaces the mirror with the store's current contents.
func (r *Reconciler) Load(ctx context.Context) error {
	r.setStatus(StatusSyncing)

	items, err := r.store.List(ctx, r.session.UserID)
	if err != nil {
		r.setStatus(StatusError)
		metrics.IncrementSyncOperation("load", "error")
		r.logger.Error("Failed to load synced data", zap.Error(err))
		return &NetworkError{Op: "load", Err: err}
	}

	r.mu.Lock()
	r.items = items
	r.status = StatusConnected
	r.lastSynced = r.now()
	r.mu.Unlock()

	metrics.IncrementSyncOperation("load", "success")
	r.logger.Info("Loaded synced data", zap.Int("count", len(items)))
	return nil
}

// ForceSynchronize refetches everything from the store, discarding any
// local drift.
func (r *Reconciler) ForceSynchronize(ctx context.Context) error {
	return r.Load(ctx)
}

// Add creates a new item owned by this device and returns it after the
// store confirms the write. The reconciler reports syncing while the
// write is in flight.
func (r *Reconciler) Add(ctx context.Context, content string) (*model.SyncedItem, error) {
	r.setStatus(StatusSyncing)

	item := model.SyncedItem{
		ID:           r.newID(),
		Content:      content,
		DeviceID:     r.session.DeviceID,
		LastModified: r.now().UnixMilli(),
		Version:      1,
	}

	if err := r.store.Insert(ctx, r.session.UserID, item); err != nil {
		r.setStatus(StatusError)
		metrics.IncrementSyncOperation("add", "error")
		r.logger.Error("Failed to add synced item", zap.String("id", item.ID), zap.Error(err))
		return nil, &NetworkError{Op: "insert", Err: err}
	}

	r.mu.Lock()
	r.items = append([]model.SyncedItem{item}, r.items...)
	r.status = StatusConnected
	r.lastSynced = r.now()
	r.mu.Unlock()

	metrics.IncrementSyncOperation("add", "success")
	r.logger.Debug("Added synced item", zap.String("id", item.ID))
	return &item, nil
}

// Update rewrites an existing item's content. The new revision carries
// this device's id, a fresh timestamp and an incremented version.
func (r *Reconciler) Update(ctx context.Context, id, content string) (*model.SyncedItem, error) {
	lock := r.idLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.RUnlock()
		return nil, ErrNotFound
	}
	current := r.items[idx]
	r.mu.RUnlock()

	updated := model.SyncedItem{
		ID:           id,
		Content:      content,
		DeviceID:     r.session.DeviceID,
		LastModified: r.now().UnixMilli(),
		Version:      current.Version + 1,
	}

	r.setStatus(StatusSyncing)
	if err := r.store.Update(ctx, r.session.UserID, updated); err != nil {
		r.setStatus(StatusError)
		metrics.IncrementSyncOperation("update", "error")
		r.logger.Error("Failed to update synced item", zap.String("id", id), zap.Error(err))
		return nil, &NetworkError{Op: "update", Err: err}
	}

	r.mu.Lock()
	if idx := r.indexOf(id); idx >= 0 {
		r.items[idx] = updated
	}
	r.status = StatusConnected
	r.lastSynced = r.now()
	r.mu.Unlock()

	metrics.IncrementSyncOperation("update", "success")
	r.logger.Debug("Updated synced item",
		zap.String("id", id),
		zap.Int("version", updated.Version),
	)
	return &updated, nil
}

// Delete removes an item. Deleting an unknown id is a no-op.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	lock := r.idLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.setStatus(StatusSyncing)
	if err := r.store.Delete(ctx, r.session.UserID, id); err != nil {
		r.setStatus(StatusError)
		metrics.IncrementSyncOperation("delete", "error")
		r.logger.Error("Failed to delete synced item", zap.String("id", id), zap.Error(err))
		return &NetworkError{Op: "delete", Err: err}
	}

	r.mu.Lock()
	if idx := r.indexOf(id); idx >= 0 {
		r.items = append(r.items[:idx], r.items[idx+1:]...)
	}
	r.status = StatusConnected
	r.lastSynced = r.now()
	r.mu.Unlock()

	metrics.IncrementSyncOperation("delete", "success")
	r.logger.Debug("Deleted synced item", zap.String("id", id))
	return nil
}

// HandleRemoteChange applies one broadcast change event to the mirror.
// Inserts and updates originating from this device are self-echoes of
// writes already applied locally and are skipped. Deletes are applied
// regardless of origin so removal converges even if the local apply was
// missed. Every event refreshes lastSynced.
func (r *Reconciler) HandleRemoteChange(ev model.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSynced = r.now()

	switch ev.Type {
	case model.EventInsert:
		if ev.New == nil {
			return
		}
		if ev.New.DeviceID == r.session.DeviceID {
			metrics.SyncSelfEchoCount.Inc()
			return
		}
		if r.indexOf(ev.New.ID) >= 0 {
			return
		}
		r.items = append([]model.SyncedItem{*ev.New}, r.items...)
		r.logger.Debug("Applied remote insert",
			zap.String("id", ev.New.ID),
			zap.String("origin", ev.New.DeviceID),
		)

	case model.EventUpdate:
		if ev.New == nil {
			return
		}
		if ev.New.DeviceID == r.session.DeviceID {
			metrics.SyncSelfEchoCount.Inc()
			return
		}
		idx := r.indexOf(ev.New.ID)
		if idx < 0 {
			r.logger.Debug("Remote update for unknown item", zap.String("id", ev.New.ID))
			return
		}
		if ev.New.LastModified < r.items[idx].LastModified {
			metrics.SyncStaleDiscardCount.Inc()
			r.logger.Debug("Discarded stale remote update",
				zap.String("id", ev.New.ID),
				zap.Int64("event_ts", ev.New.LastModified),
				zap.Int64("local_ts", r.items[idx].LastModified),
			)
			return
		}
		r.items[idx] = *ev.New
		r.logger.Debug("Applied remote update",
			zap.String("id", ev.New.ID),
			zap.Int("version", ev.New.Version),
		)

	case model.EventDelete:
		if ev.Old == nil {
			return
		}
		if idx := r.indexOf(ev.Old.ID); idx >= 0 {
			r.items = append(r.items[:idx], r.items[idx+1:]...)
		}
		r.logger.Debug("Applied remote delete", zap.String("id", ev.Old.ID))

	default:
		r.logger.Warn("Unknown change event type", zap.String("type", string(ev.Type)))
	}
}

// indexOf requires r.mu held.
func (r *Reconciler) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) idLock(id string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.idLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.idLocks[id] = lock
	}
	return lock
}

func (r *Reconciler) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

package reconcile

import (
	"sync"

	"go.uber.org/zap"

	"habitsync/internal/model"
)

// Manager holds one reconciler per active (user, device) session and fans
// broadcast change events out to every device of the affected user.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]map[string]*Reconciler // userID -> deviceID -> reconciler
}

func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		sessions: make(map[string]map[string]*Reconciler),
	}
}

// Get returns the reconciler for a session, creating it on first use.
func (m *Manager) Get(session Session) *Reconciler {
	m.mu.RLock()
	if devices, ok := m.sessions[session.UserID]; ok {
		if r, ok := devices[session.DeviceID]; ok {
			m.mu.RUnlock()
			return r
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	devices, ok := m.sessions[session.UserID]
	if !ok {
		devices = make(map[string]*Reconciler)
		m.sessions[session.UserID] = devices
	}
	if r, ok := devices[session.DeviceID]; ok {
		return r
	}

	r := New(session, m.store, m.logger)
	devices[session.DeviceID] = r
	m.logger.Info("Registered sync session",
		zap.String("user_id", session.UserID),
		zap.String("device_id", session.DeviceID),
	)
	return r
}

// Remove drops a session's reconciler, typically on device disconnect.
func (m *Manager) Remove(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices, ok := m.sessions[session.UserID]
	if !ok {
		return
	}
	delete(devices, session.DeviceID)
	if len(devices) == 0 {
		delete(m.sessions, session.UserID)
	}
}

// Dispatch delivers a change event to every active reconciler of the
// event's user. Each reconciler decides for itself whether the event is
// a self-echo.
func (m *Manager) Dispatch(ev model.ChangeEvent) {
	m.mu.RLock()
	devices := m.sessions[ev.UserID]
	targets := make([]*Reconciler, 0, len(devices))
	for _, r := range devices {
		targets = append(targets, r)
	}
	m.mu.RUnlock()

	for _, r := range targets {
		r.HandleRemoteChange(ev)
	}

	m.logger.Debug("Dispatched change event",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.String("user_id", ev.UserID),
		zap.Int("targets", len(targets)),
	)
}

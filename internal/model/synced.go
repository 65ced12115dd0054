package model

// SyncedItem is a cloud-synced record replicated across a user's devices.
// Version starts at 1 and increments on every update; LastModified is
// milliseconds since epoch and orders concurrent writes (last writer wins).
type SyncedItem struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	DeviceID     string `json:"device_id"`
	LastModified int64  `json:"last_modified"`
	Version      int    `json:"version"`
}

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ChangeEvent is the realtime notification broadcast after a remote write.
// New carries the written row for insert/update; Old carries at least the id
// for delete.
type ChangeEvent struct {
	ID     string      `json:"id"`
	Type   EventType   `json:"type"`
	UserID string      `json:"user_id"`
	New    *SyncedItem `json:"new,omitempty"`
	Old    *SyncedItem `json:"old,omitempty"`
}

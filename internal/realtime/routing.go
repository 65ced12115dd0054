package realtime

// RoutingKeySyncChanged carries every synced_data change event; per-device
// exclusive queues bind to it so each device sees every change for its user.
const RoutingKeySyncChanged = "sync.changed"

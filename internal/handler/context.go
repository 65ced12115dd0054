package handler

import (
	"github.com/gin-gonic/gin"

	"habitsync/internal/habits"
	"habitsync/internal/reconcile"
)

// ContextUserID and ContextDeviceID are set by the auth and device
// middlewares before any /api handler runs.
const (
	ContextUserID   = "user_id"
	ContextDeviceID = "device_id"
)

func scopeFrom(c *gin.Context) habits.Scope {
	return habits.Scope{
		UserID:   c.GetString(ContextUserID),
		DeviceID: c.GetString(ContextDeviceID),
	}
}

func sessionFrom(c *gin.Context) reconcile.Session {
	return reconcile.Session{
		UserID:   c.GetString(ContextUserID),
		DeviceID: c.GetString(ContextDeviceID),
	}
}

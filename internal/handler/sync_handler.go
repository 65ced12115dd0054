package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/reconcile"
)

type SyncHandler struct {
	manager *reconcile.Manager
	logger  *zap.Logger
}

func NewSyncHandler(manager *reconcile.Manager, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{manager: manager, logger: logger}
}

func (h *SyncHandler) statusCode(err error) int {
	var netErr *reconcile.NetworkError
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// List returns the device's mirror, loading it from the shared store on
// first access.
func (h *SyncHandler) List(c *gin.Context) {
	session := sessionFrom(c)
	r := h.manager.Get(session)

	if r.Status() == reconcile.StatusDisconnected {
		if err := r.Load(c.Request.Context()); err != nil {
			h.logger.Error("Initial sync load failed",
				zap.String("user_id", session.UserID),
				zap.String("device_id", session.DeviceID),
				zap.Error(err),
			)
			c.JSON(h.statusCode(err), gin.H{"error": "failed to load synced data"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  r.Items(),
		"status": r.Status(),
	})
}

type syncContentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *SyncHandler) Add(c *gin.Context) {
	session := sessionFrom(c)

	var req syncContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content required"})
		return
	}

	item, err := h.manager.Get(session).Add(c.Request.Context(), req.Content)
	if err != nil {
		h.logger.Error("Sync add failed",
			zap.String("user_id", session.UserID),
			zap.String("device_id", session.DeviceID),
			zap.Error(err),
		)
		c.JSON(h.statusCode(err), gin.H{"error": "failed to add item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (h *SyncHandler) Update(c *gin.Context) {
	session := sessionFrom(c)
	id := c.Param("id")

	var req syncContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content required"})
		return
	}

	item, err := h.manager.Get(session).Update(c.Request.Context(), id, req.Content)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		h.logger.Error("Sync update failed",
			zap.String("user_id", session.UserID),
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(h.statusCode(err), gin.H{"error": "failed to update item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *SyncHandler) Delete(c *gin.Context) {
	session := sessionFrom(c)
	id := c.Param("id")

	if err := h.manager.Get(session).Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Sync delete failed",
			zap.String("user_id", session.UserID),
			zap.String("id", id),
			zap.Error(err),
		)
		c.JSON(h.statusCode(err), gin.H{"error": "failed to delete item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Force refetches everything from the shared store, discarding local
// drift from missed broadcasts.
func (h *SyncHandler) Force(c *gin.Context) {
	session := sessionFrom(c)
	r := h.manager.Get(session)

	if err := r.ForceSynchronize(c.Request.Context()); err != nil {
		h.logger.Error("Force synchronize failed",
			zap.String("user_id", session.UserID),
			zap.String("device_id", session.DeviceID),
			zap.Error(err),
		)
		c.JSON(h.statusCode(err), gin.H{"error": "failed to synchronize"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  r.Items(),
		"status": r.Status(),
	})
}

func (h *SyncHandler) Status(c *gin.Context) {
	r := h.manager.Get(sessionFrom(c))

	c.JSON(http.StatusOK, gin.H{
		"status":            r.Status(),
		"last_synced":       r.LastSynced(),
		"connected_devices": r.ConnectedDevices(),
	})
}

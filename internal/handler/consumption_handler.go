package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/habits"
	"habitsync/internal/model"
	"habitsync/internal/service"
)

type ConsumptionHandler struct {
	svc     *habits.Service
	streaks *service.StreakService
	logger  *zap.Logger
}

func NewConsumptionHandler(svc *habits.Service, streaks *service.StreakService, logger *zap.Logger) *ConsumptionHandler {
	return &ConsumptionHandler{svc: svc, streaks: streaks, logger: logger}
}

func (h *ConsumptionHandler) List(c *gin.Context) {
	scope := scopeFrom(c)

	records, err := h.svc.ListConsumption(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("List consumption failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch consumption"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

type setConsumptionRequest struct {
	Date       string `json:"date" binding:"required"`
	Cigarettes int    `json:"cigarettes"`
	Joints     int    `json:"joints"`
}

// Set upserts one day's counts and refreshes the persisted clean streaks
// from the updated collection.
func (h *ConsumptionHandler) Set(c *gin.Context) {
	scope := scopeFrom(c)

	var req setConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	if req.Cigarettes < 0 || req.Joints < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "counts must be non-negative"})
		return
	}

	records, err := h.svc.SetConsumption(c.Request.Context(), scope, model.ConsumptionRecord{
		Date:       req.Date,
		Cigarettes: req.Cigarettes,
		Joints:     req.Joints,
	})
	if err != nil {
		h.logger.Error("Set consumption failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save consumption"})
		return
	}

	streaks, err := h.streaks.Recalculate(c.Request.Context(), scope.UserID, records)
	if err != nil {
		// The record is saved; a failed counter refresh should not fail
		// the write.
		h.logger.Error("Streak recalculation failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "streaks": streaks})
}

func (h *ConsumptionHandler) ListNotes(c *gin.Context) {
	scope := scopeFrom(c)

	notes, err := h.svc.ListNotes(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("List notes failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

type saveNoteRequest struct {
	Date    string `json:"date" binding:"required"`
	Content string `json:"content"`
}

func (h *ConsumptionHandler) SaveNote(c *gin.Context) {
	scope := scopeFrom(c)

	var req saveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}
	if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	notes, err := h.svc.SaveNote(c.Request.Context(), scope, model.Note{
		Date:    req.Date,
		Content: req.Content,
	})
	if err != nil {
		h.logger.Error("Save note failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save note"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/habits"
	"habitsync/internal/model"
)

type HabitHandler struct {
	svc    *habits.Service
	logger *zap.Logger
}

func NewHabitHandler(svc *habits.Service, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{svc: svc, logger: logger}
}

func (h *HabitHandler) List(c *gin.Context) {
	scope := scopeFrom(c)

	list, err := h.svc.List(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("List habits failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch habits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"habits": list})
}

type addHabitRequest struct {
	Name            string         `json:"name" binding:"required"`
	Category        model.Category `json:"category"`
	RecurringDays   []int          `json:"recurring_days"`
	ReminderTime    string         `json:"reminder_time"`
	ReminderEnabled bool           `json:"reminder_enabled"`
}

func (h *HabitHandler) Add(c *gin.Context) {
	scope := scopeFrom(c)

	var req addHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Add habit: invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	habit, err := h.svc.Add(c.Request.Context(), scope, model.Habit{
		Name:            req.Name,
		Category:        req.Category,
		RecurringDays:   req.RecurringDays,
		ReminderTime:    req.ReminderTime,
		ReminderEnabled: req.ReminderEnabled,
	})
	if err != nil {
		h.logger.Error("Add habit failed",
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add habit"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

func (h *HabitHandler) Remove(c *gin.Context) {
	scope := scopeFrom(c)
	habitID := c.Param("id")

	if err := h.svc.Remove(c.Request.Context(), scope, habitID); err != nil {
		h.logger.Error("Remove habit failed",
			zap.String("user_id", scope.UserID),
			zap.String("habit_id", habitID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove habit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HabitHandler) mutate(c *gin.Context, op string, fn func() (*model.Habit, error)) {
	scope := scopeFrom(c)
	habitID := c.Param("id")

	habit, err := fn()
	if err != nil {
		if errors.Is(err, habits.ErrHabitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
			return
		}
		h.logger.Error(op+" failed",
			zap.String("user_id", scope.UserID),
			zap.String("habit_id", habitID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update habit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

type toggleCompletionRequest struct {
	Date string `json:"date" binding:"required"`
}

func (h *HabitHandler) ToggleCompletion(c *gin.Context) {
	var req toggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
		return
	}

	h.mutate(c, "Toggle completion", func() (*model.Habit, error) {
		return h.svc.ToggleCompletion(c.Request.Context(), scopeFrom(c), c.Param("id"), req.Date)
	})
}

func (h *HabitHandler) TogglePaused(c *gin.Context) {
	h.mutate(c, "Toggle paused", func() (*model.Habit, error) {
		return h.svc.TogglePaused(c.Request.Context(), scopeFrom(c), c.Param("id"))
	})
}

type reminderRequest struct {
	ReminderTime    string `json:"reminder_time"`
	ReminderEnabled bool   `json:"reminder_enabled"`
}

func (h *HabitHandler) UpdateReminder(c *gin.Context) {
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder"})
		return
	}

	h.mutate(c, "Update reminder", func() (*model.Habit, error) {
		return h.svc.UpdateReminder(c.Request.Context(), scopeFrom(c), c.Param("id"), req.ReminderTime, req.ReminderEnabled)
	})
}

type categoryRequest struct {
	Category model.Category `json:"category" binding:"required"`
}

func (h *HabitHandler) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category required"})
		return
	}

	h.mutate(c, "Update category", func() (*model.Habit, error) {
		return h.svc.UpdateCategory(c.Request.Context(), scopeFrom(c), c.Param("id"), req.Category)
	})
}

type scheduleRequest struct {
	RecurringDays []int `json:"recurring_days" binding:"required"`
}

func (h *HabitHandler) UpdateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recurring_days required"})
		return
	}
	for _, d := range req.RecurringDays {
		if d < 0 || d > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recurring_days must be weekday indices 0..6"})
			return
		}
	}

	h.mutate(c, "Update schedule", func() (*model.Habit, error) {
		return h.svc.UpdateRecurringDays(c.Request.Context(), scopeFrom(c), c.Param("id"), req.RecurringDays)
	})
}

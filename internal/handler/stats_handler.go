package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/habits"
	"habitsync/internal/model"
	"habitsync/internal/streak"
	"habitsync/pkg/metrics"
)

type StatsHandler struct {
	svc          *habits.Service
	lookbackDays int
	logger       *zap.Logger

	now func() time.Time
}

func NewStatsHandler(svc *habits.Service, lookbackDays int, logger *zap.Logger) *StatsHandler {
	if lookbackDays <= 0 {
		lookbackDays = streak.DefaultLookbackDays
	}
	return &StatsHandler{
		svc:          svc,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

// refDate resolves the optional ?date= query, defaulting to today. Both
// paths resolve in the server's zone so an explicit date and the default
// always land on the same weekday.
func (h *StatsHandler) refDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.now(), true
	}
	date, err := time.ParseInLocation(model.DateLayout, raw, h.now().Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

// Daily reports completion counts and ratio for one calendar date.
func (h *StatsHandler) Daily(c *gin.Context) {
	scope := scopeFrom(c)
	date, ok := h.refDate(c)
	if !ok {
		return
	}

	list, err := h.svc.List(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Daily stats failed", zap.String("user_id", scope.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch habits"})
		return
	}

	completed, scheduled := streak.DailyCompletion(list, date)
	c.JSON(http.StatusOK, gin.H{
		"date":        date.Format(model.DateLayout),
		"completed":   completed,
		"scheduled":   scheduled,
		"ratio":       streak.CompletionRatio(completed, scheduled),
		"perfect_day": streak.PerfectDay(list, date),
	})
}

// Streaks reports both whole-day streak variants plus each habit's chain.
func (h *StatsHandler) Streaks(c *gin.Context) {
	scope := scopeFrom(c)
	date, ok := h.refDate(c)
	if !ok {
		return
	}

	list, err := h.svc.List(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Streak stats failed", zap.String("user_id", scope.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch habits"})
		return
	}

	start := time.Now()
	chains := make(map[string]int, len(list))
	for _, habit := range list {
		chains[habit.ID] = streak.HabitChain(habit, date, h.lookbackDays)
	}
	resp := gin.H{
		"strict_streak":         streak.StrictStreak(list, date, h.lookbackDays),
		"any_completion_streak": streak.AnyCompletionStreak(list, date, h.lookbackDays),
		"habit_chains":          chains,
	}
	metrics.RecordStreakQueryDuration("habit_streaks", time.Since(start))

	c.JSON(http.StatusOK, resp)
}

// Weekdays buckets completion and consumption by day of week. The
// optional ?category= filter applies to habits only.
func (h *StatsHandler) Weekdays(c *gin.Context) {
	scope := scopeFrom(c)
	category := model.Category(c.Query("category"))

	list, err := h.svc.List(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Weekday stats failed", zap.String("user_id", scope.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch habits"})
		return
	}
	records, err := h.svc.ListConsumption(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Weekday stats failed", zap.String("user_id", scope.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch consumption"})
		return
	}

	start := time.Now()
	stats := streak.DayOfWeekAggregate(list, records, category)
	metrics.RecordStreakQueryDuration("weekday_aggregate", time.Since(start))

	resp := gin.H{"weekdays": stats}
	if day, ok := streak.BestDay(stats); ok {
		resp["best_day"] = day.String()
	}
	if day, ok := streak.WorstDay(stats); ok {
		resp["worst_day"] = day.String()
	}

	c.JSON(http.StatusOK, resp)
}

// ConsumptionStreaks derives the clean-day counters straight from the
// device's records, without touching the persisted profile counters.
func (h *StatsHandler) ConsumptionStreaks(c *gin.Context) {
	scope := scopeFrom(c)
	date, ok := h.refDate(c)
	if !ok {
		return
	}

	records, err := h.svc.ListConsumption(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Consumption streak stats failed", zap.String("user_id", scope.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch consumption"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cigarettes": gin.H{
			"current": streak.ConsumptionStreak(records, date, h.lookbackDays, model.StreakCigarettes),
			"longest": streak.LongestConsumptionStreak(records, date, h.lookbackDays, model.StreakCigarettes),
		},
		"joints": gin.H{
			"current": streak.ConsumptionStreak(records, date, h.lookbackDays, model.StreakJoints),
			"longest": streak.LongestConsumptionStreak(records, date, h.lookbackDays, model.StreakJoints),
		},
	})
}

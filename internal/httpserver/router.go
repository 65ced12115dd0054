package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habitsync/config"
	"habitsync/internal/handler"
	"habitsync/pkg/mq"
)

type Handlers struct {
	Habit       *handler.HabitHandler
	Consumption *handler.ConsumptionHandler
	Stats       *handler.StatsHandler
	Sync        *handler.SyncHandler
	Profile     *handler.ProfileHandler
}

func NewRouter(cfg *config.Config, h Handlers, logger *zap.Logger, db *pgxpool.Pool, consumer *mq.Consumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(AuthMiddleware(cfg.JWT.Secret, logger))
	api.Use(DeviceMiddleware())

	api.GET("/habits", h.Habit.List)
	api.POST("/habits", h.Habit.Add)
	api.DELETE("/habits/:id", h.Habit.Remove)
	api.POST("/habits/:id/toggle", h.Habit.ToggleCompletion)
	api.POST("/habits/:id/pause", h.Habit.TogglePaused)
	api.PUT("/habits/:id/reminder", h.Habit.UpdateReminder)
	api.PUT("/habits/:id/category", h.Habit.UpdateCategory)
	api.PUT("/habits/:id/schedule", h.Habit.UpdateSchedule)

	api.GET("/consumption", h.Consumption.List)
	api.POST("/consumption", h.Consumption.Set)
	api.GET("/notes", h.Consumption.ListNotes)
	api.POST("/notes", h.Consumption.SaveNote)

	api.GET("/stats/daily", h.Stats.Daily)
	api.GET("/stats/streaks", h.Stats.Streaks)
	api.GET("/stats/weekdays", h.Stats.Weekdays)
	api.GET("/stats/consumption", h.Stats.ConsumptionStreaks)

	api.GET("/sync/data", h.Sync.List)
	api.POST("/sync/data", h.Sync.Add)
	api.PUT("/sync/data/:id", h.Sync.Update)
	api.DELETE("/sync/data/:id", h.Sync.Delete)
	api.POST("/sync/force", h.Sync.Force)
	api.GET("/sync/status", h.Sync.Status)

	api.GET("/profile", h.Profile.Get)
	api.PUT("/profile", h.Profile.Save)
	api.GET("/profiles/public", h.Profile.ListPublic)

	return r
}

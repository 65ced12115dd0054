package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/handler"
	"habitsync/pkg/metrics"
	"habitsync/pkg/util"
)

// RequestLogger logs every request and records its duration.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		route := c.FullPath()
		if route == "" {
			route = path
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			latency,
		)
	}
}

// AuthMiddleware validates the bearer token and stores the user id in the
// request context.
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := util.ParseJWT(token, secret)
		if err != nil {
			logger.Warn("Rejected invalid token",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handler.ContextUserID, userID)
		c.Next()
	}
}

// DeviceMiddleware requires the X-Device-ID header that scopes local
// collections and sync sessions to one device.
func DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader("X-Device-ID")
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Device-ID header required"})
			return
		}

		c.Set(handler.ContextDeviceID, deviceID)
		c.Next()
	}
}

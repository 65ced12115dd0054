package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitsync/internal/habits"
	"habitsync/internal/localstore"
)

func newStatsContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestRefDateMatchesDefaultZone(t *testing.T) {
	svc := habits.NewService(localstore.NewMemory(), zap.NewNop())
	h := NewStatsHandler(svc, 365, zap.NewNop())
	// Pin the clock to a non-UTC zone to expose any zone mismatch
	// between the default and an explicit date.
	zone := time.FixedZone("UTC+13", 13*60*60)
	h.now = func() time.Time {
		return time.Date(2025, 3, 8, 23, 30, 0, 0, zone)
	}

	c := newStatsContext(t, "/api/stats/daily?date=2025-03-08")
	date, ok := h.refDate(c)
	require.True(t, ok)
	assert.Equal(t, zone, date.Location())
	assert.Equal(t, time.Saturday, date.Weekday())
	assert.Equal(t, h.now().Weekday(), date.Weekday())
}

func TestRefDateRejectsMalformedDate(t *testing.T) {
	svc := habits.NewService(localstore.NewMemory(), zap.NewNop())
	h := NewStatsHandler(svc, 365, zap.NewNop())

	c := newStatsContext(t, "/api/stats/daily?date=03-08-2025")
	_, ok := h.refDate(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, c.Writer.Status())
}

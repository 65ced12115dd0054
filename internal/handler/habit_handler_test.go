package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitsync/internal/habits"
	"habitsync/internal/localstore"
	"habitsync/internal/model"
)

func newHabitEngine(t *testing.T) *gin.Engine {
	t.Helper()
	return newHabitEngineWith(t, localstore.NewMemory())
}

func newHabitEngineWith(t *testing.T, store localstore.KV) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := habits.NewService(store, zap.NewNop())
	h := NewHabitHandler(svc, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserID, "user-1")
		c.Set(ContextDeviceID, "device-a")
	})
	r.GET("/api/habits", h.List)
	r.POST("/api/habits", h.Add)
	r.DELETE("/api/habits/:id", h.Remove)
	r.POST("/api/habits/:id/toggle", h.ToggleCompletion)
	r.PUT("/api/habits/:id/schedule", h.UpdateSchedule)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAddAndListHabits(t *testing.T) {
	r := newHabitEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/habits", `{"name":"Read","category":"learning"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Habit.ID)
	assert.Equal(t, model.CategoryLearning, created.Habit.Category)

	w = doJSON(t, r, http.MethodGet, "/api/habits", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Habits []model.Habit `json:"habits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Habits, 1)
	assert.Equal(t, "Read", listed.Habits[0].Name)
}

func TestAddHabitRequiresName(t *testing.T) {
	r := newHabitEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/habits", `{"category":"health"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleCompletionEndpoint(t *testing.T) {
	r := newHabitEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/habits", `{"name":"Run"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPost, "/api/habits/"+created.Habit.ID+"/toggle", `{"date":"2025-03-08"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.True(t, toggled.Habit.Completed["2025-03-08"])

	w = doJSON(t, r, http.MethodPost, "/api/habits/missing/toggle", `{"date":"2025-03-08"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// downKV fails every operation, standing in for a store outage.
type downKV struct{}

func (downKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store unavailable")
}

func (downKV) Set(context.Context, string, string) error {
	return errors.New("store unavailable")
}

func TestStoreOutageIsServerError(t *testing.T) {
	r := newHabitEngineWith(t, downKV{})

	// A backing-store failure must not masquerade as a client not-found.
	w := doJSON(t, r, http.MethodPost, "/api/habits/123/toggle", `{"date":"2025-03-08"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/habits", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUpdateScheduleValidatesWeekdays(t *testing.T) {
	r := newHabitEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/habits", `{"name":"Swim"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPut, "/api/habits/"+created.Habit.ID+"/schedule", `{"recurring_days":[1,3,7]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/habits/"+created.Habit.ID+"/schedule", `{"recurring_days":[1,3,5]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, []int{1, 3, 5}, updated.Habit.RecurringDays)
}

func TestRemoveHabitEndpoint(t *testing.T) {
	r := newHabitEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/habits", `{"name":"Doomed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Habit model.Habit `json:"habit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodDelete, "/api/habits/"+created.Habit.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/habits", "")
	var listed struct {
		Habits []model.Habit `json:"habits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Habits)
}

package habits

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitsync/internal/localstore"
	"habitsync/internal/model"
)

func newTestService() (*Service, *localstore.Memory) {
	store := localstore.NewMemory()
	svc := NewService(store, zap.NewNop())
	tick := int64(1700000000000)
	svc.now = func() time.Time {
		tick += 1000
		return time.UnixMilli(tick)
	}
	return svc, store
}

var testScope = Scope{UserID: "user-1", DeviceID: "device-a"}

func TestAddAssignsIDAndDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, testScope, model.Habit{Name: "Read"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, model.CategoryOther, added.Category)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, added.RecurringDays)
	assert.NotNil(t, added.Completed)

	second, err := svc.Add(ctx, testScope, model.Habit{Name: "Run", Category: model.CategoryHealth})
	require.NoError(t, err)
	assert.NotEqual(t, added.ID, second.ID)

	habits, err := svc.List(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, "Read", habits[0].Name)
}

func TestScopesAreIsolated(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Add(ctx, testScope, model.Habit{Name: "Mine"})
	require.NoError(t, err)

	other := Scope{UserID: "user-2", DeviceID: "device-a"}
	habits, err := svc.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestToggleCompletion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, testScope, model.Habit{Name: "Meditate"})
	require.NoError(t, err)

	toggled, err := svc.ToggleCompletion(ctx, testScope, added.ID, "2025-03-08")
	require.NoError(t, err)
	assert.True(t, toggled.Completed["2025-03-08"])

	toggled, err = svc.ToggleCompletion(ctx, testScope, added.ID, "2025-03-08")
	require.NoError(t, err)
	assert.False(t, toggled.Completed["2025-03-08"])

	_, err = svc.ToggleCompletion(ctx, testScope, "missing", "2025-03-08")
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestMutatorsPersistAcrossReload(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, testScope, model.Habit{Name: "Stretch"})
	require.NoError(t, err)

	_, err = svc.TogglePaused(ctx, testScope, added.ID)
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, testScope, added.ID, model.CategoryHealth)
	require.NoError(t, err)
	_, err = svc.UpdateRecurringDays(ctx, testScope, added.ID, []int{1, 3, 5})
	require.NoError(t, err)
	_, err = svc.UpdateReminder(ctx, testScope, added.ID, "08:30", true)
	require.NoError(t, err)

	// A second service over the same store sees every change.
	reloaded := NewService(store, zap.NewNop())
	habits, err := reloaded.List(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	h := habits[0]
	assert.True(t, h.Paused)
	assert.Equal(t, model.CategoryHealth, h.Category)
	assert.Equal(t, []int{1, 3, 5}, h.RecurringDays)
	assert.Equal(t, "08:30", h.ReminderTime)
	assert.True(t, h.ReminderEnabled)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, testScope, model.Habit{Name: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, testScope, added.ID))
	require.NoError(t, svc.Remove(ctx, testScope, added.ID))

	habits, err := svc.List(ctx, testScope)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestListNormalizesLegacyPayloads(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// An old payload without category, schedule or completion map.
	legacy := []map[string]any{{"id": "1", "name": "Old"}}
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "habits:user-1:device-a", string(raw)))

	habits, err := svc.List(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, model.CategoryOther, habits[0].Category)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, habits[0].RecurringDays)
	assert.NotNil(t, habits[0].Completed)
}

func TestSetConsumptionUpsertsByDate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SetConsumption(ctx, testScope, model.ConsumptionRecord{Date: "2025-03-07", Cigarettes: 2})
	require.NoError(t, err)
	records, err := svc.SetConsumption(ctx, testScope, model.ConsumptionRecord{Date: "2025-03-07", Cigarettes: 0, Joints: 1})
	require.NoError(t, err)

	// Same date replaces, never duplicates.
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Cigarettes)
	assert.Equal(t, 1, records[0].Joints)

	records, err = svc.SetConsumption(ctx, testScope, model.ConsumptionRecord{Date: "2025-03-08"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSaveNoteUpsertsAndClears(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	notes, err := svc.SaveNote(ctx, testScope, model.Note{Date: "2025-03-08", Content: "rough day"})
	require.NoError(t, err)
	require.Len(t, notes, 1)

	notes, err = svc.SaveNote(ctx, testScope, model.Note{Date: "2025-03-08", Content: "better now"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "better now", notes[0].Content)

	// Empty content removes the note for that date.
	notes, err = svc.SaveNote(ctx, testScope, model.Note{Date: "2025-03-08"})
	require.NoError(t, err)
	assert.Empty(t, notes)
}

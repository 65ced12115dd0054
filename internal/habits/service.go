package habits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"habitsync/internal/localstore"
	"habitsync/internal/model"
)

// ErrHabitNotFound is returned when a mutation targets a habit id that
// does not exist in the scope's collection. Store failures are reported
// as their own errors, never as not-found.
var ErrHabitNotFound = errors.New("habit not found")

// Scope identifies whose device-local collections an operation touches.
type Scope struct {
	UserID   string
	DeviceID string
}

func (s Scope) key(collection string) string {
	return fmt.Sprintf("%s:%s:%s", collection, s.UserID, s.DeviceID)
}

// Service owns the device-local collections: habits, consumption records
// and notes. The local copy is authoritative for reads; every mutation
// writes the full collection back through the KV store.
type Service struct {
	store  localstore.KV
	logger *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewService(store localstore.KV, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) loadHabits(ctx context.Context, scope Scope) ([]model.Habit, error) {
	raw, ok, err := s.store.Get(ctx, scope.key("habits"))
	if err != nil {
		return nil, fmt.Errorf("failed to load habits: %w", err)
	}
	if !ok {
		return []model.Habit{}, nil
	}

	var habits []model.Habit
	if err := json.Unmarshal([]byte(raw), &habits); err != nil {
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}
	for i := range habits {
		habits[i].Normalize()
	}
	return habits, nil
}

func (s *Service) saveHabits(ctx context.Context, scope Scope, habits []model.Habit) error {
	raw, err := json.Marshal(habits)
	if err != nil {
		return fmt.Errorf("failed to encode habits: %w", err)
	}
	if err := s.store.Set(ctx, scope.key("habits"), string(raw)); err != nil {
		return fmt.Errorf("failed to save habits: %w", err)
	}
	return nil
}

// List returns the scope's habits with backward-compat defaults applied.
func (s *Service) List(ctx context.Context, scope Scope) ([]model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHabits(ctx, scope)
}

// Add creates a habit and returns it with its assigned id.
func (s *Service) Add(ctx context.Context, scope Scope, habit model.Habit) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	habits, err := s.loadHabits(ctx, scope)
	if err != nil {
		return nil, err
	}

	habit.ID = strconv.FormatInt(s.now().UnixMilli(), 10)
	habit.Normalize()
	habits = append(habits, habit)

	if err := s.saveHabits(ctx, scope, habits); err != nil {
		return nil, err
	}

	s.logger.Info("Habit added",
		zap.String("user_id", scope.UserID),
		zap.String("habit_id", habit.ID),
		zap.String("name", habit.Name),
	)
	return &habit, nil
}

// Remove deletes a habit by id. Removing an unknown id is a no-op.
func (s *Service) Remove(ctx context.Context, scope Scope, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	habits, err := s.loadHabits(ctx, scope)
	if err != nil {
		return err
	}

	kept := habits[:0]
	for _, h := range habits {
		if h.ID != habitID {
			kept = append(kept, h)
		}
	}
	if err := s.saveHabits(ctx, scope, kept); err != nil {
		return err
	}

	s.logger.Info("Habit removed",
		zap.String("user_id", scope.UserID),
		zap.String("habit_id", habitID),
	)
	return nil
}

func (s *Service) mutateHabit(ctx context.Context, scope Scope, habitID string, fn func(*model.Habit)) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	habits, err := s.loadHabits(ctx, scope)
	if err != nil {
		return nil, err
	}

	var target *model.Habit
	for i := range habits {
		if habits[i].ID == habitID {
			target = &habits[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("habit %s: %w", habitID, ErrHabitNotFound)
	}

	fn(target)
	if err := s.saveHabits(ctx, scope, habits); err != nil {
		return nil, err
	}

	out := *target
	return &out, nil
}

// ToggleCompletion flips a habit's done state for one calendar date.
func (s *Service) ToggleCompletion(ctx context.Context, scope Scope, habitID, date string) (*model.Habit, error) {
	return s.mutateHabit(ctx, scope, habitID, func(h *model.Habit) {
		h.Completed[date] = !h.Completed[date]
	})
}

// TogglePaused flips a habit's paused flag.
func (s *Service) TogglePaused(ctx context.Context, scope Scope, habitID string) (*model.Habit, error) {
	return s.mutateHabit(ctx, scope, habitID, func(h *model.Habit) {
		h.Paused = !h.Paused
	})
}

func (s *Service) UpdateReminder(ctx context.Context, scope Scope, habitID, reminderTime string, enabled bool) (*model.Habit, error) {
	return s.mutateHabit(ctx, scope, habitID, func(h *model.Habit) {
		h.ReminderTime = reminderTime
		h.ReminderEnabled = enabled
	})
}

func (s *Service) UpdateCategory(ctx context.Context, scope Scope, habitID string, category model.Category) (*model.Habit, error) {
	return s.mutateHabit(ctx, scope, habitID, func(h *model.Habit) {
		h.Category = category
	})
}

func (s *Service) UpdateRecurringDays(ctx context.Context, scope Scope, habitID string, days []int) (*model.Habit, error) {
	return s.mutateHabit(ctx, scope, habitID, func(h *model.Habit) {
		h.RecurringDays = days
	})
}

func (s *Service) loadConsumption(ctx context.Context, scope Scope) ([]model.ConsumptionRecord, error) {
	raw, ok, err := s.store.Get(ctx, scope.key("consumption"))
	if err != nil {
		return nil, fmt.Errorf("failed to load consumption: %w", err)
	}
	if !ok {
		return []model.ConsumptionRecord{}, nil
	}

	var records []model.ConsumptionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to decode consumption: %w", err)
	}
	return records, nil
}

// ListConsumption returns all per-day consumption records for the scope.
func (s *Service) ListConsumption(ctx context.Context, scope Scope) ([]model.ConsumptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadConsumption(ctx, scope)
}

// SetConsumption upserts the record for its date. At most one record per
// date survives a write.
func (s *Service) SetConsumption(ctx context.Context, scope Scope, record model.ConsumptionRecord) ([]model.ConsumptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadConsumption(ctx, scope)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range records {
		if records[i].Date == record.Date {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode consumption: %w", err)
	}
	if err := s.store.Set(ctx, scope.key("consumption"), string(raw)); err != nil {
		return nil, fmt.Errorf("failed to save consumption: %w", err)
	}

	s.logger.Debug("Consumption recorded",
		zap.String("user_id", scope.UserID),
		zap.String("date", record.Date),
		zap.Int("cigarettes", record.Cigarettes),
		zap.Int("joints", record.Joints),
	)
	return records, nil
}

func (s *Service) loadNotes(ctx context.Context, scope Scope) ([]model.Note, error) {
	raw, ok, err := s.store.Get(ctx, scope.key("notes"))
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	if !ok {
		return []model.Note{}, nil
	}

	var notes []model.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

func (s *Service) ListNotes(ctx context.Context, scope Scope) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadNotes(ctx, scope)
}

// SaveNote upserts the note for its date. An empty content removes it.
func (s *Service) SaveNote(ctx context.Context, scope Scope, note model.Note) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx, scope)
	if err != nil {
		return nil, err
	}

	kept := notes[:0]
	for _, n := range notes {
		if n.Date != note.Date {
			kept = append(kept, n)
		}
	}
	if note.Content != "" {
		kept = append(kept, note)
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notes: %w", err)
	}
	if err := s.store.Set(ctx, scope.key("notes"), string(raw)); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}

	return kept, nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habitsync/internal/model"
	"habitsync/internal/streak"
	"habitsync/pkg/metrics"
)

// StreakStore is the persistence surface for days-clean counters.
// *repository.StreakRepository satisfies it.
type StreakStore interface {
	Upsert(ctx context.Context, s model.ConsumptionStreak) error
	ListByUsers(ctx context.Context, userIDs []string) ([]model.ConsumptionStreak, error)
}

// StreakService recomputes and persists per-substance clean streaks after
// every consumption write, so public profiles read a current counter
// without re-deriving it per request.
type StreakService struct {
	store        StreakStore
	logger       *zap.Logger
	lookbackDays int

	now func() time.Time
}

func NewStreakService(store StreakStore, lookbackDays int, logger *zap.Logger) *StreakService {
	if lookbackDays <= 0 {
		lookbackDays = streak.DefaultLookbackDays
	}
	return &StreakService{
		store:        store,
		logger:       logger,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// Recalculate derives both substance streaks from the given records and
// persists them. The reference day is today in the server's zone.
func (s *StreakService) Recalculate(ctx context.Context, userID string, records []model.ConsumptionRecord) ([]model.ConsumptionStreak, error) {
	today := s.now()
	start := time.Now()

	var streaks []model.ConsumptionStreak
	for _, kind := range []model.StreakType{model.StreakCigarettes, model.StreakJoints} {
		cs := model.ConsumptionStreak{
			UserID:        userID,
			StreakType:    kind,
			CurrentStreak: streak.ConsumptionStreak(records, today, s.lookbackDays, kind),
			LongestStreak: streak.LongestConsumptionStreak(records, today, s.lookbackDays, kind),
		}
		if err := s.store.Upsert(ctx, cs); err != nil {
			return nil, err
		}
		streaks = append(streaks, cs)
	}

	metrics.RecordStreakQueryDuration("consumption_streaks", time.Since(start))
	s.logger.Debug("Recalculated consumption streaks",
		zap.String("user_id", userID),
		zap.Int("cigarettes", streaks[0].CurrentStreak),
		zap.Int("joints", streaks[1].CurrentStreak),
	)
	return streaks, nil
}

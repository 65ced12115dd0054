package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitsync/internal/model"
)

// StreakRepository persists the days-clean counters rendered on public
// profiles.
type StreakRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewStreakRepository(db *pgxpool.Pool, logger *zap.Logger) *StreakRepository {
	return &StreakRepository{
		db:     db,
		logger: logger,
	}
}

func (r *StreakRepository) Upsert(ctx context.Context, s model.ConsumptionStreak) error {
	r.logger.Debug("Upserting consumption streak",
		zap.String("user_id", s.UserID),
		zap.String("streak_type", string(s.StreakType)),
		zap.Int("current", s.CurrentStreak),
	)

	query := `
        INSERT INTO consumption_streaks (user_id, streak_type, current_streak, longest_streak)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, streak_type) DO UPDATE
        SET current_streak = EXCLUDED.current_streak,
            longest_streak = GREATEST(consumption_streaks.longest_streak, EXCLUDED.longest_streak),
            updated_at = NOW()
    `

	_, err := r.db.Exec(ctx, query,
		s.UserID,
		s.StreakType,
		s.CurrentStreak,
		s.LongestStreak,
	)
	if err != nil {
		r.logger.Error("Failed to upsert consumption streak",
			zap.String("user_id", s.UserID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// ListByUsers returns streaks for the given user ids.
func (r *StreakRepository) ListByUsers(ctx context.Context, userIDs []string) ([]model.ConsumptionStreak, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	r.logger.Debug("Listing consumption streaks", zap.Int("users", len(userIDs)))

	query := `
        SELECT user_id, streak_type, current_streak, longest_streak
        FROM consumption_streaks
        WHERE user_id = ANY($1)
    `

	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		r.logger.Error("Failed to list consumption streaks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var streaks []model.ConsumptionStreak
	for rows.Next() {
		var s model.ConsumptionStreak
		if err := rows.Scan(
			&s.UserID,
			&s.StreakType,
			&s.CurrentStreak,
			&s.LongestStreak,
		); err != nil {
			r.logger.Error("Failed to scan consumption streak", zap.Error(err))
			return nil, err
		}
		streaks = append(streaks, s)
	}

	return streaks, rows.Err()
}

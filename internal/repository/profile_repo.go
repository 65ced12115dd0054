package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitsync/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	r.logger.Debug("Fetching profile", zap.String("id", id))

	query := `
        SELECT id, username, display_name, avatar_url,
               public_profile, public_habits, public_cigarette_streak, public_joint_streak,
               created_at, updated_at
        FROM profiles
        WHERE id = $1
    `

	var p model.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.AvatarURL,
		&p.PublicProfile,
		&p.PublicHabits,
		&p.PublicCigaretteStreak,
		&p.PublicJointStreak,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		r.logger.Error("Failed to fetch profile", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	r.logger.Debug("Upserting profile",
		zap.String("id", p.ID),
		zap.String("username", p.Username),
	)

	query := `
        INSERT INTO profiles (id, username, display_name, avatar_url,
                              public_profile, public_habits, public_cigarette_streak, public_joint_streak)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE
        SET username = EXCLUDED.username,
            display_name = EXCLUDED.display_name,
            avatar_url = EXCLUDED.avatar_url,
            public_profile = EXCLUDED.public_profile,
            public_habits = EXCLUDED.public_habits,
            public_cigarette_streak = EXCLUDED.public_cigarette_streak,
            public_joint_streak = EXCLUDED.public_joint_streak,
            updated_at = NOW()
    `

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Username,
		p.DisplayName,
		p.AvatarURL,
		p.PublicProfile,
		p.PublicHabits,
		p.PublicCigaretteStreak,
		p.PublicJointStreak,
	)
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.String("id", p.ID), zap.Error(err))
		return err
	}

	r.logger.Info("Profile saved", zap.String("id", p.ID))
	return nil
}

// ListPublic returns profiles whose owners opted into the friends view.
func (r *ProfileRepository) ListPublic(ctx context.Context) ([]model.Profile, error) {
	r.logger.Debug("Listing public profiles")

	query := `
        SELECT id, username, display_name, avatar_url,
               public_profile, public_habits, public_cigarette_streak, public_joint_streak,
               created_at, updated_at
        FROM profiles
        WHERE public_profile = TRUE
        ORDER BY username ASC
    `

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list public profiles", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(
			&p.ID,
			&p.Username,
			&p.DisplayName,
			&p.AvatarURL,
			&p.PublicProfile,
			&p.PublicHabits,
			&p.PublicCigaretteStreak,
			&p.PublicJointStreak,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan profile", zap.Error(err))
			return nil, err
		}
		profiles = append(profiles, p)
	}

	r.logger.Debug("Listed public profiles", zap.Int("count", len(profiles)))
	return profiles, rows.Err()
}

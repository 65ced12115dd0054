package service

import (
	"context"

	"go.uber.org/zap"

	"habitsync/internal/model"
)

// ProfileStore is the persistence surface the friends view reads from.
// *repository.ProfileRepository satisfies it.
type ProfileStore interface {
	ListPublic(ctx context.Context) ([]model.Profile, error)
}

// FriendsService assembles the public dashboard: every opted-in profile
// with the streaks its owner chose to expose.
type FriendsService struct {
	profiles ProfileStore
	streaks  StreakStore
	logger   *zap.Logger
}

func NewFriendsService(profiles ProfileStore, streaks StreakStore, logger *zap.Logger) *FriendsService {
	return &FriendsService{
		profiles: profiles,
		streaks:  streaks,
		logger:   logger,
	}
}

// ListPublicProfiles returns the friends view. Streaks whose privacy flag
// is off render as zero rather than being omitted.
func (s *FriendsService) ListPublicProfiles(ctx context.Context) ([]model.PublicProfileView, error) {
	profiles, err := s.profiles.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []model.PublicProfileView{}, nil
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}

	streaks, err := s.streaks.ListByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]map[model.StreakType]int, len(profiles))
	for _, cs := range streaks {
		if byUser[cs.UserID] == nil {
			byUser[cs.UserID] = make(map[model.StreakType]int)
		}
		byUser[cs.UserID][cs.StreakType] = cs.CurrentStreak
	}

	views := make([]model.PublicProfileView, 0, len(profiles))
	for _, p := range profiles {
		view := model.PublicProfileView{
			ID:          p.ID,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		}
		if p.PublicCigaretteStreak {
			view.CigaretteStreak = byUser[p.ID][model.StreakCigarettes]
		}
		if p.PublicJointStreak {
			view.JointStreak = byUser[p.ID][model.StreakJoints]
		}
		views = append(views, view)
	}

	s.logger.Debug("Assembled friends view", zap.Int("profiles", len(views)))
	return views, nil
}

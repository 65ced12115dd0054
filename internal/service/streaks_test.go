package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitsync/internal/model"
)

type fakeStreakStore struct {
	saved map[string]map[model.StreakType]model.ConsumptionStreak
}

func newFakeStreakStore() *fakeStreakStore {
	return &fakeStreakStore{saved: make(map[string]map[model.StreakType]model.ConsumptionStreak)}
}

func (s *fakeStreakStore) Upsert(_ context.Context, cs model.ConsumptionStreak) error {
	if s.saved[cs.UserID] == nil {
		s.saved[cs.UserID] = make(map[model.StreakType]model.ConsumptionStreak)
	}
	s.saved[cs.UserID][cs.StreakType] = cs
	return nil
}

func (s *fakeStreakStore) ListByUsers(_ context.Context, userIDs []string) ([]model.ConsumptionStreak, error) {
	var out []model.ConsumptionStreak
	for _, id := range userIDs {
		for _, cs := range s.saved[id] {
			out = append(out, cs)
		}
	}
	return out, nil
}

func TestRecalculatePersistsBothSubstances(t *testing.T) {
	store := newFakeStreakStore()
	svc := NewStreakService(store, 365, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	}

	// Three clean days for cigarettes; joints consumed yesterday.
	records := []model.ConsumptionRecord{
		{Date: "2025-03-06", Cigarettes: 0, Joints: 0},
		{Date: "2025-03-07", Cigarettes: 0, Joints: 2},
		{Date: "2025-03-08", Cigarettes: 0, Joints: 0},
	}

	streaks, err := svc.Recalculate(context.Background(), "user-1", records)
	require.NoError(t, err)
	require.Len(t, streaks, 2)

	cigs := store.saved["user-1"][model.StreakCigarettes]
	assert.Equal(t, 3, cigs.CurrentStreak)
	assert.Equal(t, 3, cigs.LongestStreak)

	joints := store.saved["user-1"][model.StreakJoints]
	assert.Equal(t, 1, joints.CurrentStreak)
	assert.Equal(t, 1, joints.LongestStreak)
}

type fakeProfileStore struct {
	profiles []model.Profile
}

func (s *fakeProfileStore) ListPublic(context.Context) ([]model.Profile, error) {
	return s.profiles, nil
}

func TestFriendsViewHonorsPrivacyFlags(t *testing.T) {
	streakStore := newFakeStreakStore()
	require.NoError(t, streakStore.Upsert(context.Background(), model.ConsumptionStreak{
		UserID: "open", StreakType: model.StreakCigarettes, CurrentStreak: 12, LongestStreak: 20,
	}))
	require.NoError(t, streakStore.Upsert(context.Background(), model.ConsumptionStreak{
		UserID: "open", StreakType: model.StreakJoints, CurrentStreak: 4, LongestStreak: 9,
	}))
	require.NoError(t, streakStore.Upsert(context.Background(), model.ConsumptionStreak{
		UserID: "shy", StreakType: model.StreakCigarettes, CurrentStreak: 30, LongestStreak: 30,
	}))

	profiles := &fakeProfileStore{profiles: []model.Profile{
		{ID: "open", Username: "open", PublicProfile: true, PublicCigaretteStreak: true, PublicJointStreak: true},
		{ID: "shy", Username: "shy", PublicProfile: true},
	}}

	svc := NewFriendsService(profiles, streakStore, zap.NewNop())
	views, err := svc.ListPublicProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 12, views[0].CigaretteStreak)
	assert.Equal(t, 4, views[0].JointStreak)

	// Streaks stay hidden when the owner kept the flags off.
	assert.Equal(t, 0, views[1].CigaretteStreak)
	assert.Equal(t, 0, views[1].JointStreak)
}

func TestFriendsViewEmpty(t *testing.T) {
	svc := NewFriendsService(&fakeProfileStore{}, newFakeStreakStore(), zap.NewNop())
	views, err := svc.ListPublicProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, views)
}

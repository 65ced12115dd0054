package model

import "time"

// Profile is the identity-collaborator record with explicit privacy flags.
type Profile struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username"`
	DisplayName           string    `json:"display_name"`
	AvatarURL             string    `json:"avatar_url"`
	PublicProfile         bool      `json:"public_profile"`
	PublicHabits          bool      `json:"public_habits"`
	PublicCigaretteStreak bool      `json:"public_cigarette_streak"`
	PublicJointStreak     bool      `json:"public_joint_streak"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// PublicProfileView is what the friends dashboard renders: profile fields
// plus the streaks the owner chose to expose (zero when private).
type PublicProfileView struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	AvatarURL       string `json:"avatar_url"`
	CigaretteStreak int    `json:"cigarette_streak"`
	JointStreak     int    `json:"joint_streak"`
}

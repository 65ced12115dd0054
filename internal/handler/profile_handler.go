package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitsync/internal/model"
	"habitsync/internal/repository"
	"habitsync/internal/service"
)

type ProfileHandler struct {
	profiles *repository.ProfileRepository
	friends  *service.FriendsService
	logger   *zap.Logger
}

func NewProfileHandler(profiles *repository.ProfileRepository, friends *service.FriendsService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, friends: friends, logger: logger}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		h.logger.Error("Get profile failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

type saveProfileRequest struct {
	Username              string `json:"username" binding:"required"`
	DisplayName           string `json:"display_name"`
	AvatarURL             string `json:"avatar_url"`
	PublicProfile         bool   `json:"public_profile"`
	PublicHabits          bool   `json:"public_habits"`
	PublicCigaretteStreak bool   `json:"public_cigarette_streak"`
	PublicJointStreak     bool   `json:"public_joint_streak"`
}

func (h *ProfileHandler) Save(c *gin.Context) {
	userID := c.GetString(ContextUserID)

	var req saveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	profile := &model.Profile{
		ID:                    userID,
		Username:              req.Username,
		DisplayName:           req.DisplayName,
		AvatarURL:             req.AvatarURL,
		PublicProfile:         req.PublicProfile,
		PublicHabits:          req.PublicHabits,
		PublicCigaretteStreak: req.PublicCigaretteStreak,
		PublicJointStreak:     req.PublicJointStreak,
	}
	if err := h.profiles.Upsert(c.Request.Context(), profile); err != nil {
		h.logger.Error("Save profile failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// ListPublic serves the friends dashboard: opted-in profiles with the
// streaks their owners chose to expose.
func (h *ProfileHandler) ListPublic(c *gin.Context) {
	views, err := h.friends.ListPublicProfiles(c.Request.Context())
	if err != nil {
		h.logger.Error("List public profiles failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch profiles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": views})
}

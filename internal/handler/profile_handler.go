package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/middleware"
	"fitcrush/internal/repository"
	"fitcrush/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProfileHandler struct {
	userRepo *repository.UserRepository
	photos   *repository.PhotoRepository
	blocks   *repository.BlockRepository
	matches  *service.MatchService
}

func NewProfileHandler(userRepo *repository.UserRepository, photos *repository.PhotoRepository, blocks *repository.BlockRepository, matches *service.MatchService) *ProfileHandler {
	return &ProfileHandler{userRepo: userRepo, photos: photos, blocks: blocks, matches: matches}
}

// GetProfile returns the caller's full account including ledger fields.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrUserNotFound)
			return
		}
		respondError(c, err)
		return
	}
	photos, err := h.photos.ListByUserID(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	u.Photos = photos
	now := time.Now()
	tier := u.Tier(now)
	c.JSON(http.StatusOK, gin.H{
		"user":         u,
		"age":          u.Age(now),
		"tier":         tier,
		"capabilities": domain.CapabilitiesOf(tier),
	})
}

type UpdateProfileRequest struct {
	DisplayName        *string  `json:"display_name" binding:"omitempty,max=64"`
	Bio                *string  `json:"bio" binding:"omitempty,max=1000"`
	Gender             *string  `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	InterestedIn       *string  `json:"interested_in" binding:"omitempty,oneof=MEN WOMEN EVERYONE"`
	City               *string  `json:"city" binding:"omitempty,max=100"`
	Gym                *string  `json:"gym" binding:"omitempty,max=120"`
	FitnessGoals       *string  `json:"fitness_goals" binding:"omitempty,max=255"`
	WorkoutStyles      []string `json:"workout_styles"`
	ActivityLevel      *string  `json:"activity_level" binding:"omitempty,oneof=LIGHT MODERATE ACTIVE ATHLETE"`
	HeightCm           *int     `json:"height_cm" binding:"omitempty,min=100,max=250"`
	DateOfBirth        *string  `json:"date_of_birth"`
	EmailNotifications *bool    `json:"email_notifications"`
}

func validWorkoutStyle(s string) bool {
	for _, w := range domain.WorkoutStyles {
		if w == s {
			return true
		}
	}
	return false
}

// UpdateProfile applies a partial profile update. Ledger fields cannot be set here.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	fields := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("display_name", req.DisplayName)
	set("bio", req.Bio)
	set("gender", req.Gender)
	set("interested_in", req.InterestedIn)
	set("city", req.City)
	set("gym", req.Gym)
	set("fitness_goals", req.FitnessGoals)
	set("activity_level", req.ActivityLevel)
	if req.HeightCm != nil {
		fields["height_cm"] = *req.HeightCm
	}
	if req.EmailNotifications != nil {
		fields["email_notifications"] = *req.EmailNotifications
	}
	if req.WorkoutStyles != nil {
		styles := make([]string, 0, len(req.WorkoutStyles))
		for _, s := range req.WorkoutStyles {
			s = strings.ToUpper(strings.TrimSpace(s))
			if !validWorkoutStyle(s) {
				badRequest(c, "unknown workout style: "+s)
				return
			}
			styles = append(styles, s)
		}
		fields["workout_styles"] = strings.Join(styles, ",")
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			badRequest(c, "invalid date_of_birth format (use YYYY-MM-DD)")
			return
		}
		u, err := h.userRepo.GetByID(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		// Date of birth can be added once; it cannot be changed afterwards.
		if u.DateOfBirth != nil && !u.DateOfBirth.Equal(dob) {
			badRequest(c, "date_of_birth cannot be changed")
			return
		}
		u.DateOfBirth = &dob
		if u.Age(time.Now()) < domain.MinAge {
			respondError(c, domain.ErrAgeRequired)
			return
		}
		fields["date_of_birth"] = dob
	}
	if err := h.userRepo.UpdateFields(userID, fields); err != nil {
		respondError(c, err)
		return
	}
	h.GetProfile(c)
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *ProfileHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token required")
		return
	}
	if err := h.userRepo.UpdateFields(middleware.GetUserID(c), map[string]interface{}{"fcm_token": req.Token}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetUser returns another member's public profile and the crush state between
// the two. A free viewer is never told that the other side crushed first.
func (h *ProfileHandler) GetUser(c *gin.Context) {
	viewerID := middleware.GetUserID(c)
	otherID, ok := idParam(c, "id")
	if !ok {
		return
	}
	blocked, err := h.blocks.EitherBlocked(viewerID, otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	if blocked {
		respondError(c, domain.ErrUserNotFound)
		return
	}
	other, err := h.userRepo.GetByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrUserNotFound)
			return
		}
		respondError(c, err)
		return
	}
	viewer, err := h.userRepo.GetByID(viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	photos, err := h.photos.ListByUserID(otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	now := time.Now()
	state := "none"
	if viewerID != otherID {
		ps, err := h.matches.PairState(c.Request.Context(), viewerID, otherID)
		if err != nil {
			respondError(c, err)
			return
		}
		switch ps {
		case service.Matched:
			state = "matched"
		case service.PendingFromA:
			state = "crush_sent"
		case service.PendingFromB:
			if domain.Can(viewer.Tier(now), domain.CapSeeInboundCrushes) {
				state = "crush_received"
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"profile": other.Public(now),
		"photos":  photos,
		"state":   state,
	})
}

package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"fitcrush/internal/middleware"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feed     *repository.FeedRepository
	userRepo *repository.UserRepository
}

func NewFeedHandler(feed *repository.FeedRepository, userRepo *repository.UserRepository) *FeedHandler {
	return &FeedHandler{feed: feed, userRepo: userRepo}
}

func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &n, true
}

// Feed lists profiles the caller can still crush on.
// GET /feed?gender=&min_age=&max_age=&city=&workout_style=&limit=&offset=
func (h *FeedHandler) Feed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	viewer, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	minAge, ok := optionalInt(c, "min_age")
	if !ok {
		return
	}
	maxAge, ok := optionalInt(c, "max_age")
	if !ok {
		return
	}
	limit, offset := page(c, 20)
	now := time.Now()
	users, err := h.feed.Candidates(c.Request.Context(), viewer, repository.FeedFilters{
		Gender:       strings.ToUpper(c.Query("gender")),
		MinAge:       minAge,
		MaxAge:       maxAge,
		City:         c.Query("city"),
		WorkoutStyle: strings.ToUpper(c.Query("workout_style")),
		Limit:        limit,
		Offset:       offset,
	}, now)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public(now))
	}
	if err := h.userRepo.Touch(userID, now); err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, gin.H{"profiles": out, "limit": limit, "offset": offset})
}

package handler

import (
	"net/http"

	"fitcrush/internal/middleware"
	"fitcrush/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

// GetMyReferrals returns the user's code and what it has earned.
// GET /me/referrals
func (h *ReferralHandler) GetMyReferrals(c *gin.Context) {
	stats, err := h.svc.Stats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

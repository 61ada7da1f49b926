package handler

import (
	"net/http"

	"fitcrush/internal/middleware"
	"fitcrush/internal/service"

	"github.com/gin-gonic/gin"
)

type CrushHandler struct {
	svc *service.CrushService
}

func NewCrushHandler(svc *service.CrushService) *CrushHandler {
	return &CrushHandler{svc: svc}
}

// Send spends one crush on the user in the path.
// POST /crushes/:user_id
func (h *CrushHandler) Send(c *gin.Context) {
	to, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	res, err := h.svc.SendCrush(c.Request.Context(), middleware.GetUserID(c), to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List returns outbound, inbound (tier permitting) and matches.
// GET /crushes
func (h *CrushHandler) List(c *gin.Context) {
	st, err := h.svc.InterestState(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Matches returns only the mutual crushes.
// GET /matches
func (h *CrushHandler) Matches(c *gin.Context) {
	st, err := h.svc.InterestState(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": st.Matches})
}

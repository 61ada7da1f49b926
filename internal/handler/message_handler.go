package handler

import (
	"net/http"
	"time"

	"fitcrush/internal/middleware"
	"fitcrush/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	svc *service.MessageService
}

func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type SendMessageRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url" binding:"omitempty,url,max=512"`
}

// Send posts a message to a match.
// POST /conversations/:user_id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	to, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), middleware.GetUserID(c), to, req.Content, req.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List returns one page of the thread, oldest first.
// GET /conversations/:user_id/messages?limit=&before=RFC3339
func (h *MessageHandler) List(c *gin.Context) {
	other, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	limit, _ := page(c, 50)
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "invalid before (use RFC3339)")
			return
		}
		before = &t
	}
	userID := middleware.GetUserID(c)
	list, err := h.svc.ListMessages(c.Request.Context(), userID, other, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": service.ConversationID(userID, other),
		"messages":        list,
	})
}

// MarkRead marks everything the other user sent as read.
// POST /conversations/:user_id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	other, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	n, err := h.svc.MarkConversationRead(c.Request.Context(), middleware.GetUserID(c), other)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Delete hides the body of one of the caller's own messages.
// DELETE /messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Conversations lists matches with their last message and unread count.
// GET /conversations
func (h *MessageHandler) Conversations(c *gin.Context) {
	list, err := h.svc.Conversations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"fitcrush/internal/domain"
	"fitcrush/internal/service"
	"fitcrush/internal/ws"
)

// RealtimeHandler answers frames sent over the websocket.
type RealtimeHandler struct {
	messages *service.MessageService
}

func NewRealtimeHandler(messages *service.MessageService) *RealtimeHandler {
	return &RealtimeHandler{messages: messages}
}

func errorFrame(err error) *ws.Frame {
	var de *domain.Error
	if errors.As(err, &de) {
		data, _ := json.Marshal(map[string]string{"code": de.Code})
		return &ws.Frame{Type: "error", Error: de.Message, Data: data}
	}
	slog.Error("ws frame failed", "error", err)
	return &ws.Frame{Type: "error", Error: "internal error"}
}

// HandleFrame implements ws.FrameHandler. Successful sends are delivered to
// both sides by the message relay, so nothing is returned for them.
func (h *RealtimeHandler) HandleFrame(ctx context.Context, userID uint, f ws.Frame) *ws.Frame {
	switch f.Type {
	case "message":
		if f.To == 0 {
			return &ws.Frame{Type: "error", Error: "recipient required"}
		}
		if _, err := h.messages.SendMessage(ctx, userID, f.To, f.Content, f.Image); err != nil {
			return errorFrame(err)
		}
		return nil
	case "read":
		if f.To == 0 {
			return &ws.Frame{Type: "error", Error: "recipient required"}
		}
		if _, err := h.messages.MarkConversationRead(ctx, userID, f.To); err != nil {
			return errorFrame(err)
		}
		return nil
	case "ping":
		return &ws.Frame{Type: "pong"}
	default:
		return &ws.Frame{Type: "error", Error: "unknown frame type"}
	}
}

package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fitcrush/config"
	"fitcrush/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxFrameSize = 8 << 10
)

// FrameHandler processes one inbound frame from userID. A returned frame, if
// any, is written back to the sending connection.
type FrameHandler func(ctx context.Context, userID uint, f Frame) *Frame

// Serve upgrades GET /ws?token=<access token> and registers the connection in
// hub under the token's user.
func Serve(cfg *config.JWTConfig, hub *Hub, onFrame FrameHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(claims.UserID)
		hub.Register(client)
		defer client.Close()
		slog.Debug("ws connected", "user_id", claims.UserID)

		go writePump(client, conn)
		readPump(c.Request.Context(), client, conn, onFrame)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(ctx context.Context, c *Client, conn *websocket.Conn, onFrame FrameHandler) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			reply(c, &Frame{Type: "error", Error: "invalid frame"})
			continue
		}
		if onFrame == nil {
			continue
		}
		if out := onFrame(ctx, c.UserID, f); out != nil {
			reply(c, out)
		}
	}
}

func reply(c *Client, f *Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.trySend(data)
}

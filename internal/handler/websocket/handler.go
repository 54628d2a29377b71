// Package websocket upgrades authenticated HTTP requests into hub
// clients.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/hub"
)

// WebSocketHandler handles the single /ws endpoint. One connection per
// upgrade; room subscription, presence and everything else flows over
// socket events afterwards.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// TODO: restrict origins once the deployed client origin is pinned down.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection handles GET /ws. The Auth middleware has already put
// the user id in the context; failure past the upgrade can only be
// reported by closing the socket.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	connID := uuid.NewString()
	client := hub.NewClient(h.hub, conn, connID, userID)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub rejected registration, closing connection")
		conn.Close()
		return
	}

	logCtx.WithField("conn_id", connID).Info("WS Handler: Connection established")
	client.Run()
}

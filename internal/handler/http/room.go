package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/hub"
	"github.com/ItsRoy69/Game/internal/service"
)

// RoomHandler exposes the room lifecycle over REST.
type RoomHandler struct {
	roomService *service.RoomService
	hub         *hub.Hub
}

// NewRoomHandler creates a RoomHandler. hub may be nil in tests; it is
// only used to push expiry notices after an admin delete.
func NewRoomHandler(roomService *service.RoomService, h *hub.Hub) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, hub: h}
}

// authedUserID pulls the user id the Auth middleware stored in the
// context.
func authedUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: User ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: User ID in context is not uint")
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error processing user ID")
		return 0, false
	}
	return userID, true
}

func roomIDParam(c *gin.Context) (uint, bool) {
	idStr := c.Param("roomId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid room ID format")
		return 0, false
	}
	return uint(id), true
}

// CreateRoomRequest is the body for POST /api/rooms.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}
	if req.Type == "" {
		req.Type = "public"
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name, req.Type)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Failed to create room via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "join_code": room.JoinCode}).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusCreated, room)
}

// JoinRoomRequest is the body for POST /api/rooms/join.
type JoinRoomRequest struct {
	JoinCode string `json:"joinCode" binding:"required,len=6"`
}

// JoinRoomResponse decorates the joined room with the time left before
// expiry, so clients do not have to derive it from expiresAt against
// their own clocks.
type JoinRoomResponse struct {
	*domain.ChatRoom
	RemainingSeconds int64 `json:"remainingSeconds"`
}

// JoinRoom handles POST /api/rooms/join: membership by invite code.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.JoinRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: joinCode is required")
		return
	}

	room, err := h.roomService.JoinByCode(c.Request.Context(), userID, req.JoinCode)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.JoinRoom: Failed to join room via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("room_id", room.ID).Info("Handler.JoinRoom: User joined room")
	SuccessResponse(c, http.StatusOK, JoinRoomResponse{
		ChatRoom:         room,
		RemainingSeconds: int64(room.RemainingTime(time.Now()).Seconds()),
	})
}

// ListRooms handles GET /api/rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	rooms, err := h.roomService.ListRooms(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), userID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// UpdateRoomRequest is the body for PUT /api/rooms/:roomId. Expiry is
// not updatable.
type UpdateRoomRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UpdateRoom handles PUT /api/rooms/:roomId (admin only).
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}
	room, err := h.roomService.UpdateRoom(c.Request.Context(), userID, roomID, req.Name, req.Type)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// DeleteRoom handles DELETE /api/rooms/:roomId (admin only). The room
// and its group messages go down in one transaction, then connected
// members get the same expiry notice the sweeper sends.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	memberIDs, err := h.roomService.DeleteRoom(c.Request.Context(), userID, roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.ExpireRoom(roomID, memberIDs)
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Room deleted"})
}

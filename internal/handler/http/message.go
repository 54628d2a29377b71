package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/repository"
	"github.com/ItsRoy69/Game/internal/service"
)

// MessageHandler exposes paged message history over REST.
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	if messageService == nil {
		panic("MessageService cannot be nil for MessageHandler")
	}
	return &MessageHandler{messageService: messageService}
}

// historyPageQuery parses page, limit, startDate and endDate query
// parameters. Dates use RFC 3339; a bad date is reported, a bad number
// falls back to the default.
func historyPageQuery(c *gin.Context) (repository.HistoryPage, bool) {
	var page repository.HistoryPage
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Limit = n
		}
	}
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid startDate, expected RFC 3339")
			return page, false
		}
		page.StartDate = t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid endDate, expected RFC 3339")
			return page, false
		}
		page.EndDate = t
	}
	return page, true
}

// PrivateHistory handles GET /api/messages/private/:userId: one page of
// the conversation between the caller and the named user, oldest first
// within the page.
func (h *MessageHandler) PrivateHistory(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	peerIDStr := c.Param("userId")
	peerID64, err := strconv.ParseUint(peerIDStr, 10, 32)
	if err != nil || peerID64 == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	page, ok := historyPageQuery(c)
	if !ok {
		return
	}

	result, err := h.messageService.PrivateHistory(c.Request.Context(), userID, uint(peerID64), page)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "peer_id": peerID64}).
			Warn("Handler.PrivateHistory: Failed to load history")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

// RoomHistory handles GET /api/messages/room/:roomId.
func (h *MessageHandler) RoomHistory(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	page, ok := historyPageQuery(c)
	if !ok {
		return
	}

	result, err := h.messageService.RoomHistory(c.Request.Context(), userID, roomID, page)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "room_id": roomID}).
			Warn("Handler.RoomHistory: Failed to load history")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, result)
}

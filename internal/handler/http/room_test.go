package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ItsRoy69/Game/internal/domain"
	httphandler "github.com/ItsRoy69/Game/internal/handler/http"
	"github.com/ItsRoy69/Game/internal/repository"
	"github.com/ItsRoy69/Game/internal/repository/mocks"
	"github.com/ItsRoy69/Game/internal/service"
)

// newJoinRouter stands the join endpoint up behind a stub auth step, the
// way the middleware would populate the context in production.
func newJoinRouter(roomRepo *mocks.RoomRepository, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	messageRepo := new(mocks.MessageRepository)
	roomService := service.NewRoomService(roomRepo, messageRepo, 24*time.Hour, 50)
	handler := httphandler.NewRoomHandler(roomService, nil)

	router := gin.New()
	router.POST("/api/rooms/join", func(c *gin.Context) {
		c.Set("user_id", userID)
		handler.JoinRoom(c)
	})
	return router
}

func postJoin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/join", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRoomHandler_JoinRoom_IncludesRemainingSeconds(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	router := newJoinRouter(roomRepo, 7)

	room := &domain.ChatRoom{
		ID:        5,
		Name:      "arena chat",
		JoinCode:  "ABC123",
		ExpiresAt: time.Now().Add(2 * time.Hour),
		Members:   []domain.RoomMember{{RoomID: 5, UserID: 7}},
	}
	roomRepo.On("FindActiveByJoinCode", mock.Anything, "ABC123", mock.AnythingOfType("time.Time")).
		Return(room, nil).Once()

	rec := postJoin(router, `{"joinCode":"ABC123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID               uint      `json:"id"`
		ExpiresAt        time.Time `json:"expiresAt"`
		RemainingSeconds int64     `json:"remainingSeconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(5), resp.ID)
	assert.False(t, resp.ExpiresAt.IsZero())
	assert.Greater(t, resp.RemainingSeconds, int64(0))
	assert.LessOrEqual(t, resp.RemainingSeconds, int64((2*time.Hour)/time.Second))
}

func TestRoomHandler_JoinRoom_UnknownCodeIs404(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	router := newJoinRouter(roomRepo, 7)

	roomRepo.On("FindActiveByJoinCode", mock.Anything, "NOPE42", mock.AnythingOfType("time.Time")).
		Return(nil, repository.ErrRoomNotFound).Once()

	rec := postJoin(router, `{"joinCode":"NOPE42"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomHandler_JoinRoom_RejectsMalformedCode(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	router := newJoinRouter(roomRepo, 7)

	rec := postJoin(router, `{"joinCode":"SHORT"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	roomRepo.AssertNotCalled(t, "FindActiveByJoinCode", mock.Anything, mock.Anything, mock.Anything)
}

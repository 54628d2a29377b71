package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/service"
)

// HandleServiceError maps service errors to HTTP status codes.
func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrValidation) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrForbidden) {
		ErrorResponse(c, http.StatusForbidden, err.Error())
	} else if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCode) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrRoomExpired) {
		ErrorResponse(c, http.StatusGone, err.Error())
	} else {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

package service

import "errors"

var (
	ErrValidation     = errors.New("invalid input")
	ErrRoomNotFound   = errors.New("room not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrForbidden      = errors.New("not authorized for this room")
	ErrRoomExpired    = errors.New("room has expired")
	ErrInvalidCode    = errors.New("invalid or expired join code")
	ErrInternalServer = errors.New("internal server error")
)

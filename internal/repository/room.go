package repository

import (
	"context"
	"time"

	"github.com/ItsRoy69/Game/internal/domain"
)

// RoomRepository defines storage and retrieval of chat rooms and their
// membership sets.
type RoomRepository interface {
	// FindByID loads a room with its members.
	// Returns ErrRoomNotFound if it does not exist.
	FindByID(ctx context.Context, id uint) (*domain.ChatRoom, error)

	// FindActiveByJoinCode loads a room by join code whose expires_at is
	// still in the future at now. Returns ErrRoomNotFound otherwise.
	FindActiveByJoinCode(ctx context.Context, code string, now time.Time) (*domain.ChatRoom, error)

	// Save creates or updates a room. A unique-constraint violation on
	// the join code is reported as ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.ChatRoom) error

	// AddMember appends userID to the room's member set. Adding an
	// existing member is a no-op, not an error.
	AddMember(ctx context.Context, roomID, userID uint, admin bool) error

	// ListVisible returns non-expired rooms that are public or that
	// userID belongs to.
	ListVisible(ctx context.Context, userID uint, now time.Time) ([]domain.ChatRoom, error)

	// FindExpired returns rooms whose expires_at is at or before now.
	FindExpired(ctx context.Context, now time.Time) ([]domain.ChatRoom, error)

	// MemberIDs returns the user ids in the room's member set.
	MemberIDs(ctx context.Context, roomID uint) ([]uint, error)

	// DeleteWithMessages deletes the room, its membership rows and its
	// group messages in one transaction. Partial failure rolls back.
	DeleteWithMessages(ctx context.Context, roomID uint) error
}

package repository

import (
	"context"
	"time"

	"github.com/ItsRoy69/Game/internal/domain"
)

// HistoryPage bounds and filters a history query. StartDate/EndDate are
// optional; zero values mean unbounded.
type HistoryPage struct {
	Page      int
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

// MessageRepository defines storage and retrieval of chat messages.
type MessageRepository interface {
	// Save persists a new message and fills in its id and timestamp.
	Save(ctx context.Context, msg *domain.Message) error

	// FindRecentByRoom returns up to limit group messages for the room,
	// most recent first.
	FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error)

	// FindPrivatePage returns one reverse-chronological page of the
	// private conversation between two users, plus the total count.
	FindPrivatePage(ctx context.Context, userA, userB uint, page HistoryPage) ([]domain.Message, int64, error)

	// FindGroupPage returns one reverse-chronological page of a room's
	// group messages, plus the total count.
	FindGroupPage(ctx context.Context, roomID uint, page HistoryPage) ([]domain.Message, int64, error)

	// MarkRead flips read=true on the given messages, but only where
	// recipient_id equals recipientID and read is still false. It
	// returns the messages actually updated.
	MarkRead(ctx context.Context, ids []uint, recipientID uint) ([]domain.Message, error)
}

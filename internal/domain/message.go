package domain

import "time"

// Message kinds. Exactly one of RecipientID/RoomID is set, consistent
// with the kind.
const (
	MessageKindPrivate = "private"
	MessageKindGroup   = "group"
)

// Message is a persisted chat message. Content is immutable after
// creation; only the Read flag is ever updated. Group messages share the
// owning room's lifecycle (cascade-deleted with it), private messages
// persist independently.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"index:idx_sender_recipient;not null" json:"sender"`
	RecipientID *uint     `gorm:"index:idx_sender_recipient" json:"recipient,omitempty"`
	RoomID      *uint     `gorm:"index:idx_room_kind" json:"roomId,omitempty"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Kind        string    `gorm:"type:varchar(20);index:idx_room_kind;not null" json:"kind"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

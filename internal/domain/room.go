package domain

import "time"

// Room types. Private rooms are only joinable by existing members.
const (
	RoomTypePublic  = "public"
	RoomTypePrivate = "private"
)

// ChatRoom is a time-boxed group chat channel. ExpiresAt is fixed at
// creation and never extended; every read path that selects candidate
// rooms must filter on expires_at > now so it cannot race the sweeper.
type ChatRoom struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(191);not null" json:"name"`
	Type      string       `gorm:"type:varchar(20);not null;default:public" json:"type"`
	JoinCode  string       `gorm:"type:varchar(191);uniqueIndex:idx_join_code;not null" json:"joinCode"`
	CreatorID uint         `gorm:"index;not null" json:"creatorId"`
	ExpiresAt time.Time    `gorm:"index;not null" json:"expiresAt"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"-"`
	Members   []RoomMember `gorm:"foreignKey:RoomID" json:"members,omitempty"`
}

// Expired reports whether the room is past its horizon at the given time.
func (r *ChatRoom) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// RemainingTime derives the time left before expiry, floored at zero.
func (r *ChatRoom) RemainingTime(now time.Time) time.Duration {
	if r.Expired(now) {
		return 0
	}
	return r.ExpiresAt.Sub(now)
}

// IsAdmin reports whether userID administers the room.
func (r *ChatRoom) IsAdmin(userID uint) bool {
	for _, m := range r.Members {
		if m.UserID == userID && m.Admin {
			return true
		}
	}
	return false
}

// HasMember reports whether userID belongs to the room's member set.
func (r *ChatRoom) HasMember(userID uint) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RoomMember is one row of a room's membership set. The composite unique
// index makes joins idempotent at the store level.
type RoomMember struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"roomId"`
	UserID    uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"userId"`
	Admin     bool      `gorm:"not null;default:false" json:"admin"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// Package dto defines the socket wire contract: one JSON envelope per
// frame, with the payload shape keyed by the event type. Event names are
// a fixed contract with the clients; renaming one is a breaking change.
package dto

import (
	"encoding/json"
	"time"

	"github.com/ItsRoy69/Game/internal/domain"
)

// Inbound event types.
const (
	EventAnnouncePresence   = "announcePresence"
	EventSendPrivateMessage = "sendPrivateMessage"
	EventSendGroupMessage   = "sendGroupMessage"
	EventJoinRoom           = "joinRoom"
	EventLeaveRoom          = "leaveRoom"
	EventTypingStarted      = "typingStarted"
	EventTypingStopped      = "typingStopped"
	EventMarkMessagesRead   = "markMessagesRead"
	EventGameStateUpdate    = "gameStateUpdate"
	EventPlayerReady        = "playerReady"
	EventGameStart          = "gameStart"
	EventArenaJoin          = "arenaJoin"
	EventArenaLeave         = "arenaLeave"
	EventSDPOffer           = "sdpOffer"
	EventSDPAnswer          = "sdpAnswer"
	EventICECandidate       = "iceCandidate"
	EventCallInitiate       = "callInitiate"
	EventCallInitiated      = "callInitiated"
)

// Outbound event types.
const (
	EventPrivateMessageDelivered = "privateMessageDelivered"
	EventGroupMessageDelivered   = "groupMessageDelivered"
	EventRoomJoined              = "roomJoined"
	EventRoomExpired             = "roomExpired"
	EventMemberJoinedRoom        = "memberJoinedRoom"
	EventMemberLeftRoom          = "memberLeftRoom"
	EventMessageRead             = "messageRead"
	EventUserOnline              = "userOnline"
	EventUserOffline             = "userOffline"
	EventActiveUsers             = "activeUsers"
	EventRelayError              = "relayError"
)

// Envelope is the frame wrapper used in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an outbound frame.
func NewEnvelope(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// ActiveUser is the client-visible slice of a presence entry.
type ActiveUser struct {
	UserID      uint   `json:"userId"`
	DisplayName string `json:"displayName"`
}

type AnnouncePresence struct {
	DisplayName string `json:"displayName"`
}

type SendPrivateMessage struct {
	ToUserID     uint   `json:"toUserId"`
	Content      string `json:"content"`
	ClientTempID string `json:"clientTempId,omitempty"`
}

type PrivateMessageDelivered struct {
	Message    domain.Message `json:"message"`
	FromUserID uint           `json:"fromUserId"`
	// ClientTempID is only present on the echo to the sending
	// connection; it lets the client retire its optimistic entry.
	ClientTempID string `json:"clientTempId,omitempty"`
}

type SendGroupMessage struct {
	RoomID       uint   `json:"roomId"`
	Content      string `json:"content"`
	ClientTempID string `json:"clientTempId,omitempty"`
}

type GroupMessageDelivered struct {
	RoomID       uint           `json:"roomId"`
	Message      domain.Message `json:"message"`
	FromUserID   uint           `json:"fromUserId"`
	ClientTempID string         `json:"clientTempId,omitempty"`
}

type JoinRoom struct {
	RoomID uint `json:"roomId"`
}

type LeaveRoom struct {
	RoomID uint `json:"roomId"`
}

type RoomJoined struct {
	RoomID           uint             `json:"roomId"`
	Messages         []domain.Message `json:"messages"`
	ExpiresAt        time.Time        `json:"expiresAt"`
	RemainingSeconds int64            `json:"remainingSeconds"`
}

type RoomExpired struct {
	RoomID uint `json:"roomId"`
}

type MemberChange struct {
	UserID      uint   `json:"userId"`
	DisplayName string `json:"displayName"`
}

type Typing struct {
	RoomID uint `json:"roomId"`
	UserID uint `json:"userId"`
}

type MarkMessagesRead struct {
	MessageIDs []uint `json:"messageIds"`
}

type MessageRead struct {
	MessageID    uint `json:"messageId"`
	ReadByUserID uint `json:"readByUserId"`
}

type GameStateUpdate struct {
	ToUserID   uint            `json:"toUserId,omitempty"`
	FromUserID uint            `json:"fromUserId,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

type PlayerReady struct {
	OpponentID uint `json:"opponentId,omitempty"`
	PlayerID   uint `json:"playerId,omitempty"`
}

type GameStart struct {
	OpponentID uint `json:"opponentId,omitempty"`
}

type ArenaJoin struct {
	OpponentID uint `json:"opponentId"`
}

type ArenaLeave struct {
	OpponentID uint `json:"opponentId"`
}

// Signal carries one WebRTC negotiation frame (offer, answer or ICE
// candidate). The relay never inspects Payload.
type Signal struct {
	ToUserID   uint            `json:"toUserId,omitempty"`
	FromUserID uint            `json:"fromUserId,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type CallInitiate struct {
	OpponentID uint `json:"opponentId"`
}

type CallInitiated struct {
	FromUserID uint `json:"fromUserId"`
}

type UserPresence struct {
	UserID      uint   `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type ActiveUsersList struct {
	Users []ActiveUser `json:"users"`
}

type RelayError struct {
	Message string `json:"message"`
}

package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/dto"
	"github.com/ItsRoy69/Game/internal/service"
)

// Dispatch routes one inbound frame. It runs on the client's read pump
// goroutine; anything that fails is reported back to that connection as
// a relayError and never takes the process down with it.
func (h *Hub) Dispatch(client *Client, raw []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.relayError(client, "malformed event frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	switch env.Type {
	case dto.EventAnnouncePresence:
		h.handleAnnouncePresence(ctx, client, env.Payload)
	case dto.EventJoinRoom:
		h.handleJoinRoom(ctx, client, env.Payload)
	case dto.EventLeaveRoom:
		h.handleLeaveRoom(client, env.Payload)
	case dto.EventSendPrivateMessage:
		h.handleSendPrivate(ctx, client, env.Payload)
	case dto.EventSendGroupMessage:
		h.handleSendGroup(ctx, client, env.Payload)
	case dto.EventMarkMessagesRead:
		h.handleMarkRead(ctx, client, env.Payload)
	case dto.EventTypingStarted, dto.EventTypingStopped:
		h.handleTyping(client, env.Type, env.Payload)
	case dto.EventGameStateUpdate:
		h.handleGameState(client, env.Payload)
	case dto.EventPlayerReady:
		h.handlePlayerReady(client, env.Payload)
	case dto.EventGameStart:
		h.handleGameStart(client, env.Payload)
	case dto.EventArenaJoin:
		h.handleArenaJoin(ctx, client, env.Payload)
	case dto.EventArenaLeave:
		h.handleArenaLeave(client, env.Payload)
	case dto.EventSDPOffer, dto.EventSDPAnswer, dto.EventICECandidate:
		h.handleSignal(client, env.Type, env.Payload)
	case dto.EventCallInitiate:
		h.handleCallInitiate(client, env.Payload)
	default:
		h.relayError(client, fmt.Sprintf("unknown event type %q", env.Type))
	}
}

func (h *Hub) relayError(client *Client, message string) {
	h.sendEvent(client, dto.EventRelayError, dto.RelayError{Message: message})
}

// reportServiceError translates a service failure into the typed error
// event the originating connection sees.
func (h *Hub) reportServiceError(client *Client, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrRoomExpired):
		h.relayError(client, err.Error())
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"conn_id": client.id,
			"user_id": client.userID,
		}).Error("Unexpected service error in dispatch")
		h.relayError(client, service.ErrInternalServer.Error())
	}
}

// handleAnnouncePresence registers the connection with the presence
// registry and publishes the presence change.
func (h *Hub) handleAnnouncePresence(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.AnnouncePresence
	if err := json.Unmarshal(payload, &req); err != nil {
		h.relayError(client, "malformed announcePresence payload")
		return
	}
	name := req.DisplayName
	if name == "" && h.userRepo != nil {
		if user, err := h.userRepo.FindByID(ctx, client.userID); err == nil {
			name = user.DisplayName
		}
	}
	client.displayName = name
	h.presence.Register(client.id, client.userID, name)

	h.broadcastAll(dto.EventUserOnline, dto.UserPresence{UserID: client.userID, DisplayName: name}, client)
	h.sendEvent(client, dto.EventActiveUsers, dto.ActiveUsersList{Users: h.presence.ListActive(client.userID)})
}

func (h *Hub) handleJoinRoom(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.JoinRoom
	if err := json.Unmarshal(payload, &req); err != nil || req.RoomID == 0 {
		h.relayError(client, "malformed joinRoom payload")
		return
	}

	room, msgs, err := h.roomService.JoinByID(ctx, client.userID, req.RoomID)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	prev, changed := h.joinRoom(client, room.ID)
	if prev != 0 {
		h.broadcastRoom(prev, dto.EventMemberLeftRoom, dto.MemberChange{
			UserID:      client.userID,
			DisplayName: client.displayName,
		}, client)
	}

	h.sendEvent(client, dto.EventRoomJoined, dto.RoomJoined{
		RoomID:           room.ID,
		Messages:         msgs,
		ExpiresAt:        room.ExpiresAt,
		RemainingSeconds: int64(room.RemainingTime(timeNow()).Seconds()),
	})
	// A re-join of the current room still refreshes the requester's
	// backlog, but the group already heard about this member.
	if changed {
		h.broadcastRoom(room.ID, dto.EventMemberJoinedRoom, dto.MemberChange{
			UserID:      client.userID,
			DisplayName: client.displayName,
		}, client)
	}
}

func (h *Hub) handleLeaveRoom(client *Client, payload json.RawMessage) {
	var req dto.LeaveRoom
	if err := json.Unmarshal(payload, &req); err != nil {
		h.relayError(client, "malformed leaveRoom payload")
		return
	}
	// Leaving only drops the connection's subscription; membership in
	// the room's member set is untouched.
	if roomID := h.removeFromRoom(client); roomID != 0 {
		h.broadcastRoom(roomID, dto.EventMemberLeftRoom, dto.MemberChange{
			UserID:      client.userID,
			DisplayName: client.displayName,
		}, client)
	}
}

func (h *Hub) handleSendPrivate(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.SendPrivateMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		h.relayError(client, "malformed sendPrivateMessage payload")
		return
	}

	msg, err := h.messageService.SendPrivate(ctx, client.userID, req.ToUserID, req.Content)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}

	// Recipient copies never carry the temp id; only the sender can
	// reconcile its optimistic entry, and only once.
	h.sendToUser(req.ToUserID, dto.EventPrivateMessageDelivered, dto.PrivateMessageDelivered{
		Message:    *msg,
		FromUserID: client.userID,
	})
	h.sendEvent(client, dto.EventPrivateMessageDelivered, dto.PrivateMessageDelivered{
		Message:      *msg,
		FromUserID:   client.userID,
		ClientTempID: req.ClientTempID,
	})
}

func (h *Hub) handleSendGroup(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.SendGroupMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		h.relayError(client, "malformed sendGroupMessage payload")
		return
	}

	msg, err := h.messageService.SendGroup(ctx, client.userID, req.RoomID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrRoomExpired) {
			// Tell the client the room is gone and drop its
			// subscription so later sends stop arriving.
			h.sendEvent(client, dto.EventRoomExpired, dto.RoomExpired{RoomID: req.RoomID})
			h.removeFromRoom(client)
			return
		}
		h.reportServiceError(client, err)
		return
	}

	h.broadcastRoom(req.RoomID, dto.EventGroupMessageDelivered, dto.GroupMessageDelivered{
		RoomID:     req.RoomID,
		Message:    *msg,
		FromUserID: client.userID,
	}, client)
	h.sendEvent(client, dto.EventGroupMessageDelivered, dto.GroupMessageDelivered{
		RoomID:       req.RoomID,
		Message:      *msg,
		FromUserID:   client.userID,
		ClientTempID: req.ClientTempID,
	})
}

func (h *Hub) handleMarkRead(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.MarkMessagesRead
	if err := json.Unmarshal(payload, &req); err != nil {
		h.relayError(client, "malformed markMessagesRead payload")
		return
	}
	updated, err := h.messageService.MarkRead(ctx, client.userID, req.MessageIDs)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}
	for _, msg := range updated {
		h.sendToUser(msg.SenderID, dto.EventMessageRead, dto.MessageRead{
			MessageID:    msg.ID,
			ReadByUserID: client.userID,
		})
	}
}

func (h *Hub) handleTyping(client *Client, eventType string, payload json.RawMessage) {
	var req dto.Typing
	if err := json.Unmarshal(payload, &req); err != nil || req.RoomID == 0 {
		return
	}
	req.UserID = client.userID
	h.broadcastRoom(req.RoomID, eventType, req, client)
}

// handleGameState forwards a gameplay snapshot to the opponent. No
// persistence, no ack; an offline target is a silent drop.
func (h *Hub) handleGameState(client *Client, payload json.RawMessage) {
	var req dto.GameStateUpdate
	if err := json.Unmarshal(payload, &req); err != nil || req.ToUserID == 0 {
		h.relayError(client, "malformed gameStateUpdate payload")
		return
	}
	h.sendToUser(req.ToUserID, dto.EventGameStateUpdate, dto.GameStateUpdate{
		FromUserID: client.userID,
		Snapshot:   req.Snapshot,
	})
}

// handlePlayerReady forwards the readiness notice to the opponent and,
// when this call completes the pair, pushes gameStart to both sides.
// The arena tracks readiness as a set, so a duplicate ready from the
// same player can never fire a second start.
func (h *Hub) handlePlayerReady(client *Client, payload json.RawMessage) {
	var req dto.PlayerReady
	if err := json.Unmarshal(payload, &req); err != nil || req.OpponentID == 0 {
		h.relayError(client, "malformed playerReady payload")
		return
	}
	h.sendToUser(req.OpponentID, dto.EventPlayerReady, dto.PlayerReady{PlayerID: client.userID})

	if h.arena.Ready(client.userID, req.OpponentID) {
		h.sendToUser(client.userID, dto.EventGameStart, dto.GameStart{OpponentID: req.OpponentID})
		h.sendToUser(req.OpponentID, dto.EventGameStart, dto.GameStart{OpponentID: client.userID})
	}
}

// handleGameStart relays an explicit start signal; kept for clients
// that drive the start themselves rather than waiting for the paired
// readiness trigger.
func (h *Hub) handleGameStart(client *Client, payload json.RawMessage) {
	var req dto.GameStart
	if err := json.Unmarshal(payload, &req); err != nil || req.OpponentID == 0 {
		return
	}
	h.sendToUser(req.OpponentID, dto.EventGameStart, dto.GameStart{OpponentID: client.userID})
}

// handleArenaJoin announces the player's arrival to the opponent as a
// persisted private message, so the notice survives the opponent being
// offline.
func (h *Hub) handleArenaJoin(ctx context.Context, client *Client, payload json.RawMessage) {
	var req dto.ArenaJoin
	if err := json.Unmarshal(payload, &req); err != nil || req.OpponentID == 0 {
		h.relayError(client, "malformed arenaJoin payload")
		return
	}
	content := fmt.Sprintf("%s has entered the arena", client.displayName)
	msg, err := h.messageService.SendPrivate(ctx, client.userID, req.OpponentID, content)
	if err != nil {
		h.reportServiceError(client, err)
		return
	}
	h.sendToUser(req.OpponentID, dto.EventPrivateMessageDelivered, dto.PrivateMessageDelivered{
		Message:    *msg,
		FromUserID: client.userID,
	})
}

func (h *Hub) handleArenaLeave(client *Client, payload json.RawMessage) {
	var req dto.ArenaLeave
	if err := json.Unmarshal(payload, &req); err != nil || req.OpponentID == 0 {
		return
	}
	h.arena.Leave(client.userID, req.OpponentID)
}

// handleSignal forwards one WebRTC negotiation frame verbatim. This is
// a dumb pipe: no SDP or ICE validation happens here, and an offline
// target drops the frame silently because signaling only means
// anything to a live peer.
func (h *Hub) handleSignal(client *Client, eventType string, payload json.RawMessage) {
	var req dto.Signal
	if err := json.Unmarshal(payload, &req); err != nil || req.ToUserID == 0 {
		h.relayError(client, "malformed signaling payload")
		return
	}
	h.sendToUser(req.ToUserID, eventType, dto.Signal{
		FromUserID: client.userID,
		Payload:    req.Payload,
	})
}

func (h *Hub) handleCallInitiate(client *Client, payload json.RawMessage) {
	var req dto.CallInitiate
	if err := json.Unmarshal(payload, &req); err != nil || req.OpponentID == 0 {
		return
	}
	h.sendToUser(req.OpponentID, dto.EventCallInitiated, dto.CallInitiated{FromUserID: client.userID})
}

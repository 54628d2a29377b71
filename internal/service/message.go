package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/repository"
)

// HistoryResult is one chronological page of history plus the
// pagination summary derived from the total count.
type HistoryResult struct {
	Messages []domain.Message `json:"messages"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	HasMore  bool             `json:"hasMore"`
}

// MessageService persists and pages chat messages. Delivery fan-out is
// the hub's job; this layer only guarantees the at-least-once store
// write and the read-flag privacy boundary.
type MessageService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	userRepo    repository.UserRepository
	// markReadOnFetch controls whether fetching one's own private inbox
	// also flips the returned unread messages to read. The original
	// behavior is debatable enough that it stays a policy switch.
	markReadOnFetch bool
	pageSize        int
}

// NewMessageService creates a MessageService. pageSize is the default
// history page length when the client does not pass a limit.
func NewMessageService(messageRepo repository.MessageRepository, roomRepo repository.RoomRepository, userRepo repository.UserRepository, markReadOnFetch bool, pageSize int) *MessageService {
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for MessageService")
	}
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for MessageService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for MessageService")
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &MessageService{
		messageRepo:     messageRepo,
		roomRepo:        roomRepo,
		userRepo:        userRepo,
		markReadOnFetch: markReadOnFetch,
		pageSize:        pageSize,
	}
}

// ensureUserExists guards sends and history lookups against ids no
// user ever held. The identity service owns the user table; this layer
// only reads it.
func (s *MessageService) ensureUserExists(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to look up user")
		return ErrInternalServer
	}
	return nil
}

// SendPrivate persists a private message from fromID to toID and
// returns it with the store-assigned id. An unknown recipient fails
// with ErrUserNotFound rather than writing a message nobody can read.
func (s *MessageService) SendPrivate(ctx context.Context, fromID, toID uint, content string) (*domain.Message, error) {
	if toID == 0 || content == "" {
		return nil, ErrValidation
	}
	if err := s.ensureUserExists(ctx, toID); err != nil {
		return nil, err
	}
	msg := &domain.Message{
		SenderID:    fromID,
		RecipientID: &toID,
		Content:     content,
		Kind:        domain.MessageKindPrivate,
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"from": fromID, "to": toID}).Error("Failed to save private message")
		return nil, ErrInternalServer
	}
	return msg, nil
}

// SendGroup persists a group message after verifying the room is still
// inside its horizon. Sending to an expired room fails with
// ErrRoomExpired so the caller can tell the client to leave.
func (s *MessageService) SendGroup(ctx context.Context, fromID, roomID uint, content string) (*domain.Message, error) {
	if roomID == 0 || content == "" {
		return nil, ErrValidation
	}
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomExpired
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to check room before group send")
		return nil, ErrInternalServer
	}
	if room.Expired(timeNow()) {
		return nil, ErrRoomExpired
	}
	msg := &domain.Message{
		SenderID: fromID,
		RoomID:   &roomID,
		Content:  content,
		Kind:     domain.MessageKindGroup,
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"from": fromID, "room_id": roomID}).Error("Failed to save group message")
		return nil, ErrInternalServer
	}
	return msg, nil
}

// MarkRead flips read on the given messages where userID is the
// recipient, and returns the ones actually updated so the hub can
// notify their senders. Ids addressing other users' messages are
// silently ignored.
func (s *MessageService) MarkRead(ctx context.Context, userID uint, messageIDs []uint) ([]domain.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	updated, err := s.messageRepo.MarkRead(ctx, messageIDs, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to mark messages read")
		return nil, ErrInternalServer
	}
	return updated, nil
}

// PrivateHistory returns one chronological page of the conversation
// between userID and peerID. When the mark-read-on-fetch policy is on,
// unread messages addressed to userID in the returned page are marked
// read as a side effect.
func (s *MessageService) PrivateHistory(ctx context.Context, userID, peerID uint, page repository.HistoryPage) (*HistoryResult, error) {
	if err := s.ensureUserExists(ctx, peerID); err != nil {
		return nil, err
	}
	page = s.normalize(page)
	msgs, total, err := s.messageRepo.FindPrivatePage(ctx, userID, peerID, page)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "peer_id": peerID}).Error("Failed to load private history")
		return nil, ErrInternalServer
	}

	if s.markReadOnFetch {
		var unread []uint
		for _, m := range msgs {
			if m.RecipientID != nil && *m.RecipientID == userID && !m.Read {
				unread = append(unread, m.ID)
			}
		}
		if len(unread) > 0 {
			if _, err := s.messageRepo.MarkRead(ctx, unread, userID); err != nil {
				// The fetch itself succeeded; losing the side effect is
				// not worth failing the request over.
				logrus.WithError(err).WithField("user_id", userID).Warn("Failed to mark fetched messages read")
			} else {
				for i := range msgs {
					if msgs[i].RecipientID != nil && *msgs[i].RecipientID == userID {
						msgs[i].Read = true
					}
				}
			}
		}
	}

	reverseMessages(msgs)
	return s.result(msgs, total, page), nil
}

// RoomHistory returns one chronological page of a room's group
// messages. Private rooms require membership.
func (s *MessageService) RoomHistory(ctx context.Context, userID, roomID uint, page repository.HistoryPage) (*HistoryResult, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, ErrInternalServer
	}
	if room.Type == domain.RoomTypePrivate && !room.HasMember(userID) {
		return nil, ErrForbidden
	}

	page = s.normalize(page)
	msgs, total, err := s.messageRepo.FindGroupPage(ctx, roomID, page)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room history")
		return nil, ErrInternalServer
	}
	reverseMessages(msgs)
	return s.result(msgs, total, page), nil
}

func (s *MessageService) normalize(page repository.HistoryPage) repository.HistoryPage {
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.Limit <= 0 {
		page.Limit = s.pageSize
	}
	return page
}

func (s *MessageService) result(msgs []domain.Message, total int64, page repository.HistoryPage) *HistoryResult {
	return &HistoryResult{
		Messages: msgs,
		Total:    total,
		Page:     page.Page,
		Limit:    page.Limit,
		HasMore:  int64(page.Page*page.Limit) < total,
	}
}

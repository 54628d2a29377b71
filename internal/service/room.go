package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/repository"
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// How many fresh codes to try when the store reports a collision.
	maxJoinCodeAttempts = 5
)

// RoomService owns the room lifecycle: creation with a unique join code
// and a fixed expiry horizon, joining by code or id, updates and the
// transactional cascade delete.
type RoomService struct {
	roomRepo     repository.RoomRepository
	messageRepo  repository.MessageRepository
	roomTTL      time.Duration
	hydrateLimit int
	now          func() time.Time
}

// NewRoomService creates a RoomService. roomTTL is the fixed lifetime
// assigned at creation; hydrateLimit bounds the message backlog returned
// on join.
func NewRoomService(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository, roomTTL time.Duration, hydrateLimit int) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for RoomService")
	}
	if roomTTL <= 0 {
		roomTTL = 24 * time.Hour
	}
	if hydrateLimit <= 0 {
		hydrateLimit = 50
	}
	return &RoomService{
		roomRepo:     roomRepo,
		messageRepo:  messageRepo,
		roomTTL:      roomTTL,
		hydrateLimit: hydrateLimit,
		now:          time.Now,
	}
}

// CreateRoom creates a room owned by creatorID. ExpiresAt is fixed to
// now + TTL and is never touched again. The creator is saved as member
// and admin in the same write as the room itself.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint, name, roomType string) (*domain.ChatRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"creator_id": creatorID, "room_type": roomType})

	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if roomType != domain.RoomTypePublic && roomType != domain.RoomTypePrivate {
		return nil, fmt.Errorf("%w: unknown room type %q", ErrValidation, roomType)
	}

	// The join code uniqueness check is left to the store's unique
	// index: generate, try to save, and regenerate on a duplicate. A
	// pre-check would still race with concurrent creates.
	for attempt := 1; attempt <= maxJoinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate join code")
			return nil, ErrInternalServer
		}
		room := &domain.ChatRoom{
			Name:      name,
			Type:      roomType,
			JoinCode:  code,
			CreatorID: creatorID,
			ExpiresAt: s.now().Add(s.roomTTL),
			Members:   []domain.RoomMember{{UserID: creatorID, Admin: true}},
		}
		err = s.roomRepo.Save(ctx, room)
		if err == nil {
			logCtx.WithFields(logrus.Fields{"room_id": room.ID, "join_code": code}).Info("Room created")
			return room, nil
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warnf("Join code collision, retrying (attempt %d)", attempt)
			continue
		}
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}
	logCtx.Errorf("Failed to generate a unique join code after %d attempts", maxJoinCodeAttempts)
	return nil, ErrInternalServer
}

// JoinByCode resolves a non-expired room by its join code and appends
// the user to its member set. Joining a room the user already belongs to
// is a no-op.
func (s *RoomService) JoinByCode(ctx context.Context, userID uint, code string) (*domain.ChatRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "join_code": code})

	room, err := s.roomRepo.FindActiveByJoinCode(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrInvalidCode
		}
		logCtx.WithError(err).Error("Failed to look up room by join code")
		return nil, ErrInternalServer
	}

	if !room.HasMember(userID) {
		if err := s.roomRepo.AddMember(ctx, room.ID, userID, false); err != nil {
			logCtx.WithError(err).Error("Failed to add member to room")
			return nil, ErrInternalServer
		}
		room.Members = append(room.Members, domain.RoomMember{RoomID: room.ID, UserID: userID})
	}

	logCtx.WithField("room_id", room.ID).Info("User joined room by code")
	return room, nil
}

// JoinByID validates a socket-level room subscription and returns the
// room plus the most recent messages, oldest first, for hydration.
// Subscribing does not alter the member set; membership is a data
// concept, joining is a presence concept.
func (s *RoomService) JoinByID(ctx context.Context, userID, roomID uint) (*domain.ChatRoom, []domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room")
		return nil, nil, ErrInternalServer
	}
	// An expired room is indistinguishable from a deleted one: the
	// sweeper may simply not have gotten to it yet.
	if room.Expired(s.now()) {
		return nil, nil, ErrRoomNotFound
	}
	if room.Type == domain.RoomTypePrivate && !room.HasMember(userID) {
		return nil, nil, ErrForbidden
	}

	msgs, err := s.messageRepo.FindRecentByRoom(ctx, roomID, s.hydrateLimit)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load room backlog")
		return nil, nil, ErrInternalServer
	}
	reverseMessages(msgs)
	return room, msgs, nil
}

// ListRooms returns the non-expired rooms visible to the user: public
// ones plus private ones they belong to.
func (s *RoomService) ListRooms(ctx context.Context, userID uint) ([]domain.ChatRoom, error) {
	rooms, err := s.roomRepo.ListVisible(ctx, userID, s.now())
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list rooms")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// GetRoom loads a single room, applying the same visibility rule as
// JoinByID.
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID uint) (*domain.ChatRoom, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, ErrInternalServer
	}
	if room.Expired(s.now()) {
		return nil, ErrRoomNotFound
	}
	if room.Type == domain.RoomTypePrivate && !room.HasMember(userID) {
		return nil, ErrForbidden
	}
	return room, nil
}

// UpdateRoom lets an admin rename or re-type a room. ExpiresAt is
// deliberately not updatable: rooms are never renewed.
func (s *RoomService) UpdateRoom(ctx context.Context, userID, roomID uint, name, roomType string) (*domain.ChatRoom, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room for update")
		return nil, ErrInternalServer
	}
	if !room.IsAdmin(userID) {
		return nil, ErrForbidden
	}
	if name != "" {
		room.Name = name
	}
	if roomType != "" {
		if roomType != domain.RoomTypePublic && roomType != domain.RoomTypePrivate {
			return nil, fmt.Errorf("%w: unknown room type %q", ErrValidation, roomType)
		}
		room.Type = roomType
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save room update")
		return nil, ErrInternalServer
	}
	logCtx.Info("Room updated")
	return room, nil
}

// DeleteRoom lets an admin delete a room together with its group
// messages, atomically. It returns the member ids so the caller can
// notify still-connected members.
func (s *RoomService) DeleteRoom(ctx context.Context, userID, roomID uint) ([]uint, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to load room for delete")
		return nil, ErrInternalServer
	}
	if !room.IsAdmin(userID) {
		return nil, ErrForbidden
	}
	memberIDs, err := s.roomRepo.MemberIDs(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load member ids before delete")
		return nil, ErrInternalServer
	}
	if err := s.roomRepo.DeleteWithMessages(ctx, roomID); err != nil {
		logCtx.WithError(err).Error("Failed to delete room with messages")
		return nil, ErrInternalServer
	}
	logCtx.Info("Room deleted with message cascade")
	return memberIDs, nil
}

func generateJoinCode() (string, error) {
	b := make([]byte, joinCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = joinCodeAlphabet[int(b[i])%len(joinCodeAlphabet)]
	}
	return string(b), nil
}

func reverseMessages(msgs []domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

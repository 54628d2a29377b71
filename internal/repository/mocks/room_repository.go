// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ItsRoy69/Game/internal/domain"
)

// RoomRepository is a mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.ChatRoom, error) {
	args := m.Called(ctx, id)
	if room, ok := args.Get(0).(*domain.ChatRoom); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindActiveByJoinCode(ctx context.Context, code string, now time.Time) (*domain.ChatRoom, error) {
	args := m.Called(ctx, code, now)
	if room, ok := args.Get(0).(*domain.ChatRoom); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, room *domain.ChatRoom) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) AddMember(ctx context.Context, roomID, userID uint, admin bool) error {
	args := m.Called(ctx, roomID, userID, admin)
	return args.Error(0)
}

func (m *RoomRepository) ListVisible(ctx context.Context, userID uint, now time.Time) ([]domain.ChatRoom, error) {
	args := m.Called(ctx, userID, now)
	if rooms, ok := args.Get(0).([]domain.ChatRoom); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.ChatRoom, error) {
	args := m.Called(ctx, now)
	if rooms, ok := args.Get(0).([]domain.ChatRoom); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) MemberIDs(ctx context.Context, roomID uint) ([]uint, error) {
	args := m.Called(ctx, roomID)
	if ids, ok := args.Get(0).([]uint); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) DeleteWithMessages(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

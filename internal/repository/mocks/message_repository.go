package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/repository"
)

// MessageRepository is a mock of repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if msgs, ok := args.Get(0).([]domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MessageRepository) FindPrivatePage(ctx context.Context, userA, userB uint, page repository.HistoryPage) ([]domain.Message, int64, error) {
	args := m.Called(ctx, userA, userB, page)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Get(1).(int64), args.Error(2)
}

func (m *MessageRepository) FindGroupPage(ctx context.Context, roomID uint, page repository.HistoryPage) ([]domain.Message, int64, error) {
	args := m.Called(ctx, roomID, page)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Get(1).(int64), args.Error(2)
}

func (m *MessageRepository) MarkRead(ctx context.Context, ids []uint, recipientID uint) ([]domain.Message, error) {
	args := m.Called(ctx, ids, recipientID)
	if msgs, ok := args.Get(0).([]domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

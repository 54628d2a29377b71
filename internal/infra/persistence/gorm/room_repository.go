// Package gormpersistence implements the repository interfaces on GORM
// over MySQL.
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/repository"
)

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.WithContext(ctx).Preload("Members").First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindActiveByJoinCode(ctx context.Context, code string, now time.Time) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.WithContext(ctx).Preload("Members").
		Where("join_code = ? AND expires_at > ?", code, now).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by join code '%s': %w", code, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.ChatRoom) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, join_code: %s): %w", room.ID, room.JoinCode, err)
	}
	return nil
}

func (r *GormRoomRepository) AddMember(ctx context.Context, roomID, userID uint, admin bool) error {
	member := domain.RoomMember{RoomID: roomID, UserID: userID, Admin: admin}
	// DoNothing on the (room_id, user_id) unique index makes repeated
	// joins idempotent without a read-modify-write cycle.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
	if err != nil {
		return fmt.Errorf("gorm: add member %d to room %d: %w", userID, roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) ListVisible(ctx context.Context, userID uint, now time.Time) ([]domain.ChatRoom, error) {
	var rooms []domain.ChatRoom
	err := r.db.WithContext(ctx).Preload("Members").
		Where("expires_at > ?", now).
		Where("type = ? OR id IN (?)", domain.RoomTypePublic,
			r.db.Model(&domain.RoomMember{}).Select("room_id").Where("user_id = ?", userID)).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list visible rooms for user %d: %w", userID, err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.ChatRoom, error) {
	var rooms []domain.ChatRoom
	err := r.db.WithContext(ctx).Where("expires_at <= ?", now).Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find expired rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) MemberIDs(ctx context.Context, roomID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: member ids for room %d: %w", roomID, err)
	}
	return ids, nil
}

// DeleteWithMessages runs the cascade inside a single transaction: group
// messages first, then membership rows, then the room itself. Any step
// failing rolls the whole thing back so no orphaned messages survive.
func (r *GormRoomRepository) DeleteWithMessages(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND kind = ?", roomID, domain.MessageKindGroup).
			Delete(&domain.Message{}).Error; err != nil {
			return fmt.Errorf("delete group messages: %w", err)
		}
		if err := tx.Where("room_id = ?", roomID).
			Delete(&domain.RoomMember{}).Error; err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if err := tx.Delete(&domain.ChatRoom{}, roomID).Error; err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: delete room %d with messages: %w", roomID, err)
	}
	return nil
}

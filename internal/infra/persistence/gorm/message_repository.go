package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/repository"
)

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save message (sender: %d, kind: %s): %w", msg.SenderID, msg.Kind, err)
	}
	return nil
}

func (r *GormMessageRepository) FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND kind = ?", roomID, domain.MessageKindGroup).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: recent messages for room %d: %w", roomID, err)
	}
	return msgs, nil
}

func (r *GormMessageRepository) FindPrivatePage(ctx context.Context, userA, userB uint, page repository.HistoryPage) ([]domain.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("kind = ?", domain.MessageKindPrivate).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA)
	msgs, total, err := r.paginate(q, page)
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: private history %d<->%d: %w", userA, userB, err)
	}
	return msgs, total, nil
}

func (r *GormMessageRepository) FindGroupPage(ctx context.Context, roomID uint, page repository.HistoryPage) ([]domain.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("room_id = ? AND kind = ?", roomID, domain.MessageKindGroup)
	msgs, total, err := r.paginate(q, page)
	if err != nil {
		return nil, 0, fmt.Errorf("gorm: group history for room %d: %w", roomID, err)
	}
	return msgs, total, nil
}

// paginate applies the optional date range, counts the filtered set, then
// fetches one reverse-chronological page.
func (r *GormMessageRepository) paginate(q *gorm.DB, page repository.HistoryPage) ([]domain.Message, int64, error) {
	if !page.StartDate.IsZero() {
		q = q.Where("created_at >= ?", page.StartDate)
	}
	if !page.EndDate.IsZero() {
		q = q.Where("created_at <= ?", page.EndDate)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	pageNo := page.Page
	if pageNo <= 0 {
		pageNo = 1
	}
	var msgs []domain.Message
	err := q.Order("created_at DESC").
		Offset((pageNo - 1) * limit).
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// MarkRead only touches rows whose recipient is recipientID; a caller can
// never flip the read flag on somebody else's inbox. The returned slice
// holds exactly the rows this call flipped, so a retried request cannot
// re-report messages that were already read.
func (r *GormMessageRepository) MarkRead(ctx context.Context, ids []uint, recipientID uint) ([]domain.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var updated []domain.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id IN ? AND recipient_id = ? AND `read` = ?", ids, recipientID, false).
			Find(&updated).Error; err != nil {
			return err
		}
		if len(updated) == 0 {
			return nil
		}
		updatedIDs := make([]uint, len(updated))
		for i := range updated {
			updatedIDs[i] = updated[i].ID
		}
		if err := tx.Model(&domain.Message{}).
			Where("id IN ?", updatedIDs).
			Update("read", true).Error; err != nil {
			return err
		}
		for i := range updated {
			updated[i].Read = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: mark messages read for recipient %d: %w", recipientID, err)
	}
	return updated, nil
}

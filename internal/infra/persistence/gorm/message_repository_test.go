package gormpersistence_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ItsRoy69/Game/internal/domain"
	gormpersistence "github.com/ItsRoy69/Game/internal/infra/persistence/gorm"
)

// newTestDB opens an in-memory sqlite database scoped to the test, so
// the repository's SQL runs against a real store instead of a mock.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Message{}))
	return db
}

func TestGormMessageRepository_MarkRead_ReturnsOnlyRowsFlippedByThisCall(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	me, other := uint(2), uint(9)
	unread := &domain.Message{SenderID: 1, RecipientID: &me, Content: "new", Kind: domain.MessageKindPrivate}
	alreadyRead := &domain.Message{SenderID: 1, RecipientID: &me, Content: "old", Kind: domain.MessageKindPrivate, Read: true}
	notMine := &domain.Message{SenderID: 1, RecipientID: &other, Content: "foreign", Kind: domain.MessageKindPrivate}
	require.NoError(t, repo.Save(ctx, unread))
	require.NoError(t, repo.Save(ctx, alreadyRead))
	require.NoError(t, repo.Save(ctx, notMine))

	ids := []uint{unread.ID, alreadyRead.ID, notMine.ID}
	updated, err := repo.MarkRead(ctx, ids, me)
	require.NoError(t, err)

	// Only the row this call flipped comes back; the one read before
	// the call does not, so its sender is not re-notified.
	require.Len(t, updated, 1)
	assert.Equal(t, unread.ID, updated[0].ID)
	assert.True(t, updated[0].Read)

	// A retried request with the same ids has nothing left to flip.
	again, err := repo.MarkRead(ctx, ids, me)
	require.NoError(t, err)
	assert.Empty(t, again)

	// Somebody else's inbox stays untouched.
	var foreign domain.Message
	require.NoError(t, db.First(&foreign, notMine.ID).Error)
	assert.False(t, foreign.Read)
}

func TestGormMessageRepository_MarkRead_EmptyIDsIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormMessageRepository(db)

	updated, err := repo.MarkRead(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Empty(t, updated)
}

package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/repository"
	"github.com/ItsRoy69/Game/internal/tasks"
)

// ExpiryNotifier pushes the expiry notice for a deleted room to its
// connected members. The hub satisfies this.
type ExpiryNotifier interface {
	ExpireRoom(roomID uint, memberIDs []uint)
}

// SweepHandler deletes rooms whose lifetime has elapsed. Each room goes
// down in one transaction (messages, members, then the room itself), and
// a failure on one room never blocks the rest of the sweep.
type SweepHandler struct {
	roomRepo repository.RoomRepository
	notifier ExpiryNotifier
	now      func() time.Time
}

// NewSweepHandler creates a SweepHandler.
func NewSweepHandler(roomRepo repository.RoomRepository, notifier ExpiryNotifier) *SweepHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for SweepHandler")
	}
	return &SweepHandler{
		roomRepo: roomRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

// ProcessTask implements asynq.Handler.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.RoomSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logCtx.WithError(err).Error("Malformed sweep payload, using current time")
		}
	}
	reference := payload.Reference
	if reference.IsZero() {
		reference = h.now()
	}

	expired, err := h.roomRepo.FindExpired(ctx, reference)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list expired rooms")
		return err
	}
	if len(expired) == 0 {
		logCtx.Debug("Sweep found no expired rooms")
		return nil
	}
	logCtx.Infof("Sweep found %d expired rooms", len(expired))

	failed := 0
	for _, room := range expired {
		roomLogCtx := logCtx.WithField("room_id", room.ID)

		// Capture members before the cascade removes them; they are the
		// notification targets.
		memberIDs, err := h.roomRepo.MemberIDs(ctx, room.ID)
		if err != nil {
			roomLogCtx.WithError(err).Error("Failed to list members of expired room")
			failed++
			continue
		}
		if err := h.roomRepo.DeleteWithMessages(ctx, room.ID); err != nil {
			roomLogCtx.WithError(err).Error("Failed to delete expired room")
			failed++
			continue
		}
		if h.notifier != nil {
			h.notifier.ExpireRoom(room.ID, memberIDs)
		}
		roomLogCtx.Info("Expired room deleted")
	}

	if failed > 0 {
		// Rooms that failed this round stay expired and get retried on
		// the next periodic run, so the task itself still succeeds.
		logCtx.Warnf("Sweep completed with %d of %d rooms failing", failed, len(expired))
	}
	return nil
}

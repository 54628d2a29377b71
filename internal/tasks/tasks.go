// Package tasks defines the asynq task types and payloads shared by the
// scheduler and the worker.
package tasks

import (
	"encoding/json"
	"time"
)

// Task type constants.
const (
	TypeRoomExpirationSweep = "room:sweep" // periodic expired-room cleanup
)

// RoomSweepPayload carries the reference instant for one sweep run. The
// worker deletes every room whose expiry is at or before this time.
type RoomSweepPayload struct {
	Reference time.Time `json:"reference"`
}

// NewRoomSweepTask builds the payload for a sweep task. A zero reference
// means "now at processing time", which is what the periodic schedule
// uses.
func NewRoomSweepTask(reference time.Time) ([]byte, error) {
	return json.Marshal(RoomSweepPayload{Reference: reference})
}

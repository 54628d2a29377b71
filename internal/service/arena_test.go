package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ItsRoy69/Game/internal/service"
)

func TestArenaService_ReadyFiresOnceWhenPairCompletes(t *testing.T) {
	arena := service.NewArenaService()

	assert.False(t, arena.Ready(1, 2), "first ready alone should not start")
	assert.True(t, arena.Ready(2, 1), "second ready completes the pair")
	assert.False(t, arena.Ready(2, 1), "session was cleared, no double start")
}

func TestArenaService_DuplicateReadyCountsOnce(t *testing.T) {
	arena := service.NewArenaService()

	assert.False(t, arena.Ready(1, 2))
	assert.False(t, arena.Ready(1, 2), "same player twice is still one ready")
	assert.True(t, arena.Ready(2, 1))
}

func TestArenaService_PairIsOrderIndependent(t *testing.T) {
	arena := service.NewArenaService()

	assert.False(t, arena.Ready(2, 1))
	assert.True(t, arena.Ready(1, 2))
}

func TestArenaService_RejectsDegeneratePairs(t *testing.T) {
	arena := service.NewArenaService()

	assert.False(t, arena.Ready(1, 1))
	assert.False(t, arena.Ready(0, 2))
	assert.False(t, arena.Ready(1, 0))
}

func TestArenaService_LeaveAbortsHalfReadySession(t *testing.T) {
	arena := service.NewArenaService()

	arena.Ready(1, 2)
	arena.Leave(1, 2)
	assert.False(t, arena.Ready(2, 1), "readiness should have been cleared")
	assert.True(t, arena.Ready(1, 2), "fresh session completes normally")
}

func TestArenaService_DropClearsEveryPairOfThePlayer(t *testing.T) {
	arena := service.NewArenaService()

	arena.Ready(1, 2)
	arena.Ready(1, 3)
	arena.Drop(1)

	assert.False(t, arena.Ready(2, 1))
	assert.False(t, arena.Ready(3, 1))
}

func TestArenaService_ConcurrentReadyStartsExactlyOnce(t *testing.T) {
	arena := service.NewArenaService()

	const rounds = 100
	starts := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if arena.Ready(1, 2) {
				mu.Lock()
				starts++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			if arena.Ready(2, 1) {
				mu.Lock()
				starts++
				mu.Unlock()
			}
		}()
		wg.Wait()
	}

	assert.Equal(t, rounds, starts, "each round must fire exactly one start")
}

package service

import (
	"sync"
	"time"
)

// timeNow is a test seam shared by the services in this package.
var timeNow = time.Now

// arenaPair identifies a two-player session independent of who joined
// first.
type arenaPair struct {
	low, high uint
}

func pairOf(a, b uint) arenaPair {
	if a > b {
		a, b = b, a
	}
	return arenaPair{low: a, high: b}
}

// ArenaService tracks per-pair readiness for the game relay. Readiness
// is a set, not a counter: a player reporting ready twice counts once,
// and a session fires its start signal at most once. State is purely in
// memory; it dies with the process, which is fine for ephemeral
// sessions.
type ArenaService struct {
	mu    sync.Mutex
	ready map[arenaPair]map[uint]bool
}

// NewArenaService creates an ArenaService.
func NewArenaService() *ArenaService {
	return &ArenaService{ready: make(map[arenaPair]map[uint]bool)}
}

// Ready records that playerID is ready to face opponentID. It returns
// true exactly when this call completes the pair, at which point the
// session's readiness is cleared so a rematch starts from scratch.
func (s *ArenaService) Ready(playerID, opponentID uint) bool {
	if playerID == 0 || opponentID == 0 || playerID == opponentID {
		return false
	}
	key := pairOf(playerID, opponentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.ready[key]
	if !ok {
		set = make(map[uint]bool, 2)
		s.ready[key] = set
	}
	set[playerID] = true
	if set[key.low] && set[key.high] {
		delete(s.ready, key)
		return true
	}
	return false
}

// Leave clears the readiness of the pair, aborting any half-ready
// session.
func (s *ArenaService) Leave(playerID, opponentID uint) {
	s.mu.Lock()
	delete(s.ready, pairOf(playerID, opponentID))
	s.mu.Unlock()
}

// Drop clears every pair the player participates in; called on
// disconnect so a dead connection cannot hold a session half-ready.
func (s *ArenaService) Drop(playerID uint) {
	s.mu.Lock()
	for key := range s.ready {
		if key.low == playerID || key.high == playerID {
			delete(s.ready, key)
		}
	}
	s.mu.Unlock()
}

package hub

import (
	"sync"

	"github.com/ItsRoy69/Game/internal/dto"
)

// presenceEntry is one registered connection.
type presenceEntry struct {
	connID      string
	userID      uint
	displayName string
}

// userPresence is the per-user view: the connections the user holds
// and the display name from their most recent registration.
type userPresence struct {
	conns       map[string]struct{}
	displayName string
}

// Presence tracks which users are connected and which connection
// belongs to which user. A user may hold several connections at once;
// all of them count as the same presence. The registry is the only
// shared presence state in the process and every access goes through
// its mutex.
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]presenceEntry
	byUser map[uint]*userPresence
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{
		byConn: make(map[string]presenceEntry),
		byUser: make(map[uint]*userPresence),
	}
}

// Register records a connection for a user. Registering an already
// known connection overwrites it silently; that is a reconnect, not an
// error.
func (p *Presence) Register(connID string, userID uint, displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.byConn[connID]; ok && prev.userID != userID {
		p.removeConnLocked(connID, prev.userID)
	}
	p.byConn[connID] = presenceEntry{connID: connID, userID: userID, displayName: displayName}
	up, ok := p.byUser[userID]
	if !ok {
		up = &userPresence{conns: make(map[string]struct{})}
		p.byUser[userID] = up
	}
	up.conns[connID] = struct{}{}
	up.displayName = displayName
}

// Unregister removes a connection. It returns the entry that was
// removed and whether it was the user's last connection, so the caller
// can decide to broadcast an offline notice.
func (p *Presence) Unregister(connID string) (entry dto.ActiveUser, wasLast, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, found := p.byConn[connID]
	if !found {
		return dto.ActiveUser{}, false, false
	}
	p.removeConnLocked(connID, e.userID)
	_, stillOnline := p.byUser[e.userID]
	return dto.ActiveUser{UserID: e.userID, DisplayName: e.displayName}, !stillOnline, true
}

func (p *Presence) removeConnLocked(connID string, userID uint) {
	delete(p.byConn, connID)
	if up, ok := p.byUser[userID]; ok {
		delete(up.conns, connID)
		if len(up.conns) == 0 {
			delete(p.byUser, userID)
		}
	}
}

// Lookup returns the registered user for a connection.
func (p *Presence) Lookup(connID string) (dto.ActiveUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byConn[connID]
	if !ok {
		return dto.ActiveUser{}, false
	}
	return dto.ActiveUser{UserID: e.userID, DisplayName: e.displayName}, true
}

// ConnectionsFor returns the connection ids a user currently holds.
func (p *Presence) ConnectionsFor(userID uint) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	up, ok := p.byUser[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(up.conns))
	for id := range up.conns {
		ids = append(ids, id)
	}
	return ids
}

// ListActive returns the connected users, deduplicated by user id and
// excluding the requesting user. A user with several connections is
// listed once, under the display name from their most recent
// registration.
func (p *Presence) ListActive(excludingUserID uint) []dto.ActiveUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]dto.ActiveUser, 0, len(p.byUser))
	for userID, up := range p.byUser {
		if userID == excludingUserID {
			continue
		}
		users = append(users, dto.ActiveUser{UserID: userID, DisplayName: up.displayName})
	}
	return users
}

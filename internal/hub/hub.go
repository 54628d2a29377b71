// Package hub is the connection supervisor: it owns the per-connection
// lifecycle, the presence registry, the room broadcast groups and the
// dispatch of inbound socket events to the services.
package hub

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItsRoy69/Game/internal/dto"
	"github.com/ItsRoy69/Game/internal/repository"
	"github.com/ItsRoy69/Game/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Store calls made from the dispatch path get this long before the
	// originating connection sees an error instead of a hang.
	storeTimeout = 5 * time.Second
)

// timeNow is a test seam.
var timeNow = time.Now

// Hub channel message types.
const (
	hubRegister   = "register"
	hubUnregister = "unregister"
)

// HubMessage is the control message passed on the Hub's internal
// channel for connection registration and teardown.
type HubMessage struct {
	Type   string
	Client *Client
}

// Hub coordinates all connected clients. Register/unregister flow
// through its run loop; relay events are dispatched synchronously on
// each client's read pump and only touch the mutex-guarded maps here.
type Hub struct {
	messageChan chan HubMessage

	// done signals shutdown. The message channel itself is never
	// closed: read pumps may still be draining when Stop runs, and a
	// send on a closed channel would panic them.
	done     chan struct{}
	stopOnce sync.Once

	// Room broadcast groups and the connection index, both guarded by
	// roomsMu.
	rooms   map[uint]map[*Client]bool
	conns   map[string]*Client
	roomsMu sync.RWMutex

	presence *Presence

	roomService    *service.RoomService
	messageService *service.MessageService
	arena          *service.ArenaService
	userRepo       repository.UserRepository
}

// NewHub creates a Hub wired to the services it dispatches into.
func NewHub(roomService *service.RoomService, messageService *service.MessageService, arena *service.ArenaService, userRepo repository.UserRepository) *Hub {
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if messageService == nil {
		panic("MessageService cannot be nil for Hub")
	}
	if arena == nil {
		panic("ArenaService cannot be nil for Hub")
	}
	return &Hub{
		messageChan:    make(chan HubMessage, 512),
		done:           make(chan struct{}),
		rooms:          make(map[uint]map[*Client]bool),
		conns:          make(map[string]*Client),
		presence:       NewPresence(),
		roomService:    roomService,
		messageService: messageService,
		arena:          arena,
		userRepo:       userRepo,
	}
}

// Presence exposes the registry for read-side collaborators (worker,
// tests). Mutation still only happens through the hub.
func (h *Hub) Presence() *Presence { return h.presence }

// Stop ends the control loop. Safe to call more than once, and safe
// while read pumps are still draining: late unregisters are handled
// inline instead of queueing to a loop that is gone.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Run is the Hub's control loop. It should run in its own goroutine
// and ends when Stop is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case hubRegister:
				h.registerClient(msg.Client)
			case hubUnregister:
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: received unknown control message type: %s", msg.Type)
			}
		case <-h.done:
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// QueueMessage puts a control message on the Hub's queue without
// blocking. Returns false when the queue is full or the hub has
// stopped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Register queues a client registration.
func (h *Hub) Register(client *Client) bool {
	return h.QueueMessage(HubMessage{Type: hubRegister, Client: client})
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.roomsMu.Lock()
	h.conns[client.id] = client
	h.roomsMu.Unlock()
	logrus.WithFields(logrus.Fields{
		"conn_id": client.id,
		"user_id": client.userID,
	}).Info("Client registered to Hub")
	// Presence registration waits for the client's announcePresence
	// event, which carries the display name.
}

// unregisterClient tears a connection down: room group, presence,
// arena pairs, send queue. Called from the run loop, or directly from
// the read pump if the loop is saturated.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": client.id, "user_id": client.userID})

	h.roomsMu.Lock()
	delete(h.conns, client.id)
	h.roomsMu.Unlock()

	if roomID := h.removeFromRoom(client); roomID != 0 {
		h.broadcastRoom(roomID, dto.EventMemberLeftRoom, dto.MemberChange{
			UserID:      client.userID,
			DisplayName: client.displayName,
		}, client)
	}

	entry, wasLast, registered := h.presence.Unregister(client.id)
	if registered && wasLast {
		h.arena.Drop(entry.UserID)
		h.broadcastAll(dto.EventUserOffline, dto.UserPresence{UserID: entry.UserID}, client)
		h.broadcastAll(dto.EventActiveUsers, dto.ActiveUsersList{Users: h.presence.ListActive(0)}, client)
	}

	client.closeSend()
	logCtx.Info("Client unregistered from Hub")
}

// --- room broadcast groups ---

// joinRoom subscribes the client to a room group, unsubscribing it from
// its previous room first. Returns the previous room id (0 if none) and
// whether the subscription actually changed; re-joining the current
// room is a no-op.
func (h *Hub) joinRoom(client *Client, roomID uint) (prev uint, changed bool) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	prev = client.roomID
	if prev == roomID {
		return 0, false
	}
	if prev != 0 {
		h.removeFromRoomLocked(client, prev)
	}
	group, ok := h.rooms[roomID]
	if !ok {
		group = make(map[*Client]bool)
		h.rooms[roomID] = group
	}
	group[client] = true
	client.roomID = roomID
	return prev, true
}

// removeFromRoom unsubscribes the client from its current room group.
// Returns the room id it left (0 if none).
func (h *Hub) removeFromRoom(client *Client) uint {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	roomID := client.roomID
	if roomID == 0 {
		return 0
	}
	h.removeFromRoomLocked(client, roomID)
	return roomID
}

func (h *Hub) removeFromRoomLocked(client *Client, roomID uint) {
	if group, ok := h.rooms[roomID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if client.roomID == roomID {
		client.roomID = 0
	}
}

// --- delivery helpers ---

// sendEvent marshals and enqueues one frame for one client.
func (h *Hub) sendEvent(client *Client, eventType string, payload interface{}) {
	frame, err := dto.NewEnvelope(eventType, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to marshal outbound event")
		return
	}
	client.enqueue(frame)
}

// sendToUser delivers a frame to every connection the user holds.
// Unknown or offline users are a silent no-op; ephemeral relays drop
// rather than queue. Returns the number of connections reached.
func (h *Hub) sendToUser(userID uint, eventType string, payload interface{}) int {
	frame, err := dto.NewEnvelope(eventType, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to marshal outbound event")
		return 0
	}
	delivered := 0
	for _, connID := range h.presence.ConnectionsFor(userID) {
		if client := h.clientByConn(connID); client != nil {
			if client.enqueue(frame) {
				delivered++
			}
		}
	}
	return delivered
}

// clientByConn resolves a connection id to its client via the room
// groups and the connection index.
func (h *Hub) clientByConn(connID string) *Client {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return h.conns[connID]
}

// broadcastRoom fans a frame out to a room group, excluding sender when
// non-nil.
func (h *Hub) broadcastRoom(roomID uint, eventType string, payload interface{}, sender *Client) {
	frame, err := dto.NewEnvelope(eventType, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to marshal outbound event")
		return
	}
	h.roomsMu.RLock()
	group := h.rooms[roomID]
	targets := make([]*Client, 0, len(group))
	for client := range group {
		if client != sender {
			targets = append(targets, client)
		}
	}
	h.roomsMu.RUnlock()

	for _, client := range targets {
		client.enqueue(frame)
	}
}

// broadcastAll fans a frame out to every registered connection,
// excluding sender when non-nil. Used for the global presence notices;
// fine at this scale, revisit if the user count ever makes it hurt.
func (h *Hub) broadcastAll(eventType string, payload interface{}, sender *Client) {
	frame, err := dto.NewEnvelope(eventType, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to marshal outbound event")
		return
	}
	h.roomsMu.RLock()
	targets := make([]*Client, 0, len(h.conns))
	for _, client := range h.conns {
		if client != sender {
			targets = append(targets, client)
		}
	}
	h.roomsMu.RUnlock()

	for _, client := range targets {
		client.enqueue(frame)
	}
}

// ExpireRoom pushes the expiry notice for a room that the sweeper (or
// an admin delete) just removed, then force-unsubscribes the room's
// group. memberIDs reaches members who are connected but not currently
// subscribed to the room group.
func (h *Hub) ExpireRoom(roomID uint, memberIDs []uint) {
	payload := dto.RoomExpired{RoomID: roomID}

	notified := make(map[uint]bool)
	h.roomsMu.Lock()
	group := h.rooms[roomID]
	subscribers := make([]*Client, 0, len(group))
	for client := range group {
		subscribers = append(subscribers, client)
		client.roomID = 0
		notified[client.userID] = true
	}
	delete(h.rooms, roomID)
	h.roomsMu.Unlock()

	frame, err := dto.NewEnvelope(dto.EventRoomExpired, payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal room expiry event")
		return
	}
	for _, client := range subscribers {
		client.enqueue(frame)
	}
	for _, userID := range memberIDs {
		if !notified[userID] {
			h.sendToUser(userID, dto.EventRoomExpired, payload)
		}
	}
	logrus.WithField("room_id", roomID).Info("Room expiry pushed to connected members")
}

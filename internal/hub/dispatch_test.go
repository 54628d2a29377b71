package hub

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ItsRoy69/Game/internal/domain"
	"github.com/ItsRoy69/Game/internal/dto"
	"github.com/ItsRoy69/Game/internal/repository/mocks"
	"github.com/ItsRoy69/Game/internal/service"
)

// newTestHub wires a hub to mock-backed services. No goroutines run;
// dispatch is called directly the way a read pump would.
func newTestHub() (*Hub, *mocks.RoomRepository, *mocks.MessageRepository) {
	roomRepo := new(mocks.RoomRepository)
	messageRepo := new(mocks.MessageRepository)
	userRepo := new(mocks.UserRepository)
	// Recipient checks pass by default; tests that need an unknown user
	// set their own expectations on a fresh hub.
	userRepo.On("FindByID", mock.Anything, mock.Anything).Return(&domain.User{}, nil).Maybe()
	roomService := service.NewRoomService(roomRepo, messageRepo, 24*time.Hour, 50)
	messageService := service.NewMessageService(messageRepo, roomRepo, userRepo, true, 50)
	h := NewHub(roomService, messageService, service.NewArenaService(), userRepo)
	return h, roomRepo, messageRepo
}

// connect registers an announced client without touching a real socket.
func connect(h *Hub, connID string, userID uint, name string) *Client {
	c := NewClient(h, nil, connID, userID)
	c.displayName = name
	h.registerClient(c)
	h.presence.Register(connID, userID, name)
	return c
}

func frame(t *testing.T, eventType string, payload interface{}) []byte {
	t.Helper()
	raw, err := dto.NewEnvelope(eventType, payload)
	require.NoError(t, err)
	return raw
}

// nextFrame pops one queued outbound frame, failing if none is pending.
func nextFrame(t *testing.T, c *Client) dto.Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env dto.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	default:
		t.Fatal("expected a queued frame, found none")
		return dto.Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("expected no frame, got: %s", raw)
	default:
	}
}

func TestDispatch_PrivateMessage_TempIDEchoOnlyToSender(t *testing.T) {
	h, _, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")

	messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = 100
		}).Return(nil).Once()

	h.Dispatch(alice, frame(t, dto.EventSendPrivateMessage, dto.SendPrivateMessage{
		ToUserID:     2,
		Content:      "hi bob",
		ClientTempID: "tmp-1",
	}))

	// Recipient copy carries the stored id but never the temp id.
	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventPrivateMessageDelivered, env.Type)
	var toBob dto.PrivateMessageDelivered
	require.NoError(t, json.Unmarshal(env.Payload, &toBob))
	assert.Equal(t, uint(100), toBob.Message.ID)
	assert.Equal(t, uint(1), toBob.FromUserID)
	assert.Empty(t, toBob.ClientTempID)
	assertNoFrame(t, bob)

	// Sender echo reconciles the optimistic entry, exactly once.
	env = nextFrame(t, alice)
	var toAlice dto.PrivateMessageDelivered
	require.NoError(t, json.Unmarshal(env.Payload, &toAlice))
	assert.Equal(t, "tmp-1", toAlice.ClientTempID)
	assert.Equal(t, uint(100), toAlice.Message.ID)
	assertNoFrame(t, alice)
}

func TestDispatch_PrivateMessage_OfflineRecipientStillStored(t *testing.T) {
	h, _, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")

	messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = 101
		}).Return(nil).Once()

	h.Dispatch(alice, frame(t, dto.EventSendPrivateMessage, dto.SendPrivateMessage{
		ToUserID: 99, Content: "are you there", ClientTempID: "tmp-2",
	}))

	// No live connection for user 99, but the sender still gets the echo.
	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventPrivateMessageDelivered, env.Type)
	messageRepo.AssertExpectations(t)
}

func TestDispatch_GroupMessage_BroadcastAndSenderEcho(t *testing.T) {
	h, roomRepo, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	carol := connect(h, "conn-c", 3, "carol")

	h.joinRoom(alice, 5)
	h.joinRoom(bob, 5)
	// carol is connected but not in the room.

	room := &domain.ChatRoom{ID: 5, ExpiresAt: time.Now().Add(time.Hour)}
	roomRepo.On("FindByID", mock.Anything, uint(5)).Return(room, nil).Once()
	messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = 200
		}).Return(nil).Once()

	h.Dispatch(alice, frame(t, dto.EventSendGroupMessage, dto.SendGroupMessage{
		RoomID: 5, Content: "hello room", ClientTempID: "tmp-3",
	}))

	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventGroupMessageDelivered, env.Type)
	var toBob dto.GroupMessageDelivered
	require.NoError(t, json.Unmarshal(env.Payload, &toBob))
	assert.Empty(t, toBob.ClientTempID)
	assert.Equal(t, uint(200), toBob.Message.ID)

	env = nextFrame(t, alice)
	var toAlice dto.GroupMessageDelivered
	require.NoError(t, json.Unmarshal(env.Payload, &toAlice))
	assert.Equal(t, "tmp-3", toAlice.ClientTempID)
	assertNoFrame(t, alice)

	assertNoFrame(t, carol)
}

func TestDispatch_GroupMessage_ExpiredRoomEvictsSender(t *testing.T) {
	h, roomRepo, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	h.joinRoom(alice, 5)

	room := &domain.ChatRoom{ID: 5, ExpiresAt: time.Now().Add(-time.Minute)}
	roomRepo.On("FindByID", mock.Anything, uint(5)).Return(room, nil).Once()

	h.Dispatch(alice, frame(t, dto.EventSendGroupMessage, dto.SendGroupMessage{
		RoomID: 5, Content: "too late",
	}))

	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventRoomExpired, env.Type)
	assert.Equal(t, uint(0), alice.roomID, "sender should be unsubscribed")
	messageRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatch_JoinRoom_HydratesAndNotifies(t *testing.T) {
	h, roomRepo, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	h.joinRoom(bob, 5)

	room := &domain.ChatRoom{ID: 5, Type: domain.RoomTypePublic, ExpiresAt: time.Now().Add(time.Hour)}
	roomRepo.On("FindByID", mock.Anything, uint(5)).Return(room, nil).Once()
	messageRepo.On("FindRecentByRoom", mock.Anything, uint(5), 50).
		Return([]domain.Message{{ID: 3}, {ID: 2}, {ID: 1}}, nil).Once()

	h.Dispatch(alice, frame(t, dto.EventJoinRoom, dto.JoinRoom{RoomID: 5}))

	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventRoomJoined, env.Type)
	var joined dto.RoomJoined
	require.NoError(t, json.Unmarshal(env.Payload, &joined))
	assert.Equal(t, uint(5), joined.RoomID)
	require.Len(t, joined.Messages, 3)
	assert.Equal(t, uint(1), joined.Messages[0].ID, "backlog arrives oldest first")
	assert.Greater(t, joined.RemainingSeconds, int64(0))
	assert.Equal(t, uint(5), alice.roomID)

	env = nextFrame(t, bob)
	assert.Equal(t, dto.EventMemberJoinedRoom, env.Type)
}

func TestDispatch_JoinRoom_SwitchingRoomsLeavesThePrevious(t *testing.T) {
	h, roomRepo, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	h.joinRoom(alice, 5)
	h.joinRoom(bob, 5)

	room := &domain.ChatRoom{ID: 6, Type: domain.RoomTypePublic, ExpiresAt: time.Now().Add(time.Hour)}
	roomRepo.On("FindByID", mock.Anything, uint(6)).Return(room, nil).Once()
	messageRepo.On("FindRecentByRoom", mock.Anything, uint(6), 50).
		Return([]domain.Message{}, nil).Once()

	h.Dispatch(alice, frame(t, dto.EventJoinRoom, dto.JoinRoom{RoomID: 6}))

	assert.Equal(t, uint(6), alice.roomID)
	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventMemberLeftRoom, env.Type)
}

func TestDispatch_JoinRoom_RejoinDoesNotReannounce(t *testing.T) {
	h, roomRepo, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	h.joinRoom(alice, 5)
	h.joinRoom(bob, 5)

	room := &domain.ChatRoom{ID: 5, Type: domain.RoomTypePublic, ExpiresAt: time.Now().Add(time.Hour)}
	roomRepo.On("FindByID", mock.Anything, uint(5)).Return(room, nil).Once()
	messageRepo.On("FindRecentByRoom", mock.Anything, uint(5), 50).
		Return([]domain.Message{}, nil).Once()

	h.Dispatch(alice, frame(t, dto.EventJoinRoom, dto.JoinRoom{RoomID: 5}))

	// The requester still gets a fresh hydration frame.
	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventRoomJoined, env.Type)
	assertNoFrame(t, alice)
	// The group heard about alice when she first subscribed; re-joining
	// the same room must not announce her again.
	assertNoFrame(t, bob)
	assert.Equal(t, uint(5), alice.roomID)
}

func TestDispatch_Signaling_VerbatimForwardIsolatedToTarget(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	carol := connect(h, "conn-c", 3, "carol")

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0 fake"}`)
	h.Dispatch(alice, frame(t, dto.EventSDPOffer, dto.Signal{ToUserID: 2, Payload: sdp}))

	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventSDPOffer, env.Type)
	var sig dto.Signal
	require.NoError(t, json.Unmarshal(env.Payload, &sig))
	assert.Equal(t, uint(1), sig.FromUserID)
	assert.JSONEq(t, string(sdp), string(sig.Payload))

	// Other connected users never see the negotiation.
	assertNoFrame(t, carol)
	assertNoFrame(t, alice)
}

func TestDispatch_Signaling_OfflineTargetDropsSilently(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")

	h.Dispatch(alice, frame(t, dto.EventICECandidate, dto.Signal{
		ToUserID: 99, Payload: json.RawMessage(`{"candidate":"x"}`),
	}))

	assertNoFrame(t, alice)
}

func TestDispatch_PlayerReady_PairedReadinessStartsBothOnce(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")

	h.Dispatch(alice, frame(t, dto.EventPlayerReady, dto.PlayerReady{OpponentID: 2}))

	// Bob hears alice is ready, nobody starts yet.
	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventPlayerReady, env.Type)
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)

	h.Dispatch(bob, frame(t, dto.EventPlayerReady, dto.PlayerReady{OpponentID: 1}))

	env = nextFrame(t, alice)
	assert.Equal(t, dto.EventPlayerReady, env.Type)
	env = nextFrame(t, alice)
	assert.Equal(t, dto.EventGameStart, env.Type)
	env = nextFrame(t, bob)
	assert.Equal(t, dto.EventGameStart, env.Type)
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)

	// A stray repeat must not restart the finished session.
	h.Dispatch(bob, frame(t, dto.EventPlayerReady, dto.PlayerReady{OpponentID: 1}))
	env = nextFrame(t, alice)
	assert.Equal(t, dto.EventPlayerReady, env.Type)
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)
}

func TestDispatch_GameStateForwardedToOpponentOnly(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	carol := connect(h, "conn-c", 3, "carol")

	snapshot := json.RawMessage(`{"score":10,"board":[1,2,3]}`)
	h.Dispatch(alice, frame(t, dto.EventGameStateUpdate, dto.GameStateUpdate{
		ToUserID: 2, Snapshot: snapshot,
	}))

	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventGameStateUpdate, env.Type)
	var update dto.GameStateUpdate
	require.NoError(t, json.Unmarshal(env.Payload, &update))
	assert.Equal(t, uint(1), update.FromUserID)
	assert.JSONEq(t, string(snapshot), string(update.Snapshot))

	assertNoFrame(t, carol)
}

func TestDispatch_AnnouncePresence_BroadcastsAndListsOthers(t *testing.T) {
	h, _, _ := newTestHub()
	bob := connect(h, "conn-b", 2, "bob")

	alice := NewClient(h, nil, "conn-a", 1)
	h.registerClient(alice)

	h.Dispatch(alice, frame(t, dto.EventAnnouncePresence, dto.AnnouncePresence{DisplayName: "alice"}))

	env := nextFrame(t, bob)
	assert.Equal(t, dto.EventUserOnline, env.Type)
	var online dto.UserPresence
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, uint(1), online.UserID)

	env = nextFrame(t, alice)
	assert.Equal(t, dto.EventActiveUsers, env.Type)
	var list dto.ActiveUsersList
	require.NoError(t, json.Unmarshal(env.Payload, &list))
	require.Len(t, list.Users, 1, "requester excluded from their own list")
	assert.Equal(t, uint(2), list.Users[0].UserID)
}

func TestDispatch_MarkMessagesRead_NotifiesSenders(t *testing.T) {
	h, _, messageRepo := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")

	recipient := uint(2)
	messageRepo.On("MarkRead", mock.Anything, []uint{10}, recipient).
		Return([]domain.Message{{ID: 10, SenderID: 1, RecipientID: &recipient, Read: true}}, nil).Once()

	h.Dispatch(bob, frame(t, dto.EventMarkMessagesRead, dto.MarkMessagesRead{MessageIDs: []uint{10}}))

	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventMessageRead, env.Type)
	var read dto.MessageRead
	require.NoError(t, json.Unmarshal(env.Payload, &read))
	assert.Equal(t, uint(10), read.MessageID)
	assert.Equal(t, uint(2), read.ReadByUserID)
	assertNoFrame(t, bob)
}

func TestDispatch_UnknownEventType(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")

	h.Dispatch(alice, []byte(`{"type":"definitelyNotAnEvent","payload":{}}`))

	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventRelayError, env.Type)
}

func TestDispatch_MalformedFrame(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")

	h.Dispatch(alice, []byte(`this is not json`))

	env := nextFrame(t, alice)
	assert.Equal(t, dto.EventRelayError, env.Type)
}

func TestDispatch_EnqueueAfterTeardownIsNoop(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")

	alice.closeSend()
	assert.NotPanics(t, func() {
		assert.False(t, alice.enqueue([]byte(`{}`)))
	})
}

func TestHub_StopWithLiveConnectionsDoesNotPanic(t *testing.T) {
	h, _, _ := newTestHub()
	stopped := make(chan struct{})
	go func() {
		h.Run()
		close(stopped)
	}()
	alice := connect(h, "conn-a", 1, "alice")

	h.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub control loop did not stop")
	}

	// A read pump winding down after shutdown must not blow up trying
	// to reach the control loop; teardown happens inline instead.
	assert.NotPanics(t, func() {
		assert.False(t, h.QueueMessage(HubMessage{Type: hubUnregister, Client: alice}))
		h.unregisterClient(alice)
	})
	assert.NotPanics(t, h.Stop)
}

func TestExpireRoom_ReachesSubscribersAndUnsubscribedMembers(t *testing.T) {
	h, _, _ := newTestHub()
	alice := connect(h, "conn-a", 1, "alice")
	bob := connect(h, "conn-b", 2, "bob")
	h.joinRoom(alice, 5)
	// bob is a member but not currently subscribed to the room group.

	h.ExpireRoom(5, []uint{1, 2})

	for i, c := range []*Client{alice, bob} {
		env := nextFrame(t, c)
		assert.Equal(t, dto.EventRoomExpired, env.Type, fmt.Sprintf("client %d", i))
		var expired dto.RoomExpired
		require.NoError(t, json.Unmarshal(env.Payload, &expired))
		assert.Equal(t, uint(5), expired.RoomID)
		assertNoFrame(t, c)
	}
	assert.Equal(t, uint(0), alice.roomID)
}

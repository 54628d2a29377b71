package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one WebSocket connection served by the Hub. All inbound
// events for a connection are handled on its read pump goroutine, which
// is what gives senders in-order delivery to any one target.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	id          string
	userID      uint
	displayName string

	// Current room subscription, 0 when none. Only touched from the
	// read pump and the hub (under roomsMu).
	roomID uint

	send chan []byte

	sendMu sync.Mutex
	closed bool
}

// NewClient creates a Client for an upgraded connection.
func NewClient(h *Hub, conn *websocket.Conn, connID string, userID uint) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		id:     connID,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func (c *Client) ID() string   { return c.id }
func (c *Client) UserID() uint { return c.userID }
func (c *Client) RoomID() uint { return c.roomID }

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// enqueue puts a frame on the client's send queue. It is safe to call
// from any goroutine and after the client has been torn down: delivery
// to a dead connection is a no-op, never a panic. Returns false when
// the frame was dropped.
func (c *Client) enqueue(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).
			Warn("Client send queue full, dropping frame")
		return false
	}
}

// closeSend closes the send queue exactly once, which ends the write
// pump.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// ReadPump pumps frames from the connection into the Hub dispatcher.
// Dispatch is synchronous so one sender's events are processed in the
// order they were sent.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: hubUnregister, Client: c}
		select {
		case <-c.hub.done:
			// The control loop is gone; tear down inline.
			c.hub.unregisterClient(c)
		default:
			select {
			case c.hub.messageChan <- unregisterMsg:
			case <-c.hub.done:
				c.hub.unregisterClient(c)
			case <-time.After(1 * time.Second):
				logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).
					Warn("Timeout sending unregister message to Hub channel")
				c.hub.unregisterClient(c)
			}
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).
			Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.Dispatch(c, message)
	}
}

// WritePump pumps frames from the send queue to the connection and
// keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue during unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

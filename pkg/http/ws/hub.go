package ws

import (
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// member tracks one registered client and its room membership.
type member struct {
	conn        *Connection
	roomCode    string
	presenceKey string
	host        bool
}

// Hub manages WebSocket connections, room-scoped broadcast, and presence
// tracking. Publish is fire-and-forget: a slow or absent receiver never
// surfaces an error to the sender.
type Hub struct {
	mu      sync.RWMutex
	members map[string]*member  // client id -> member
	rooms   map[string][]string // room code -> client ids, join order
	logger  zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		members: make(map[string]*member),
		rooms:   make(map[string][]string),
		logger:  logger,
	}
}

// RegisterConnection adds a connection for a client. An existing connection
// under the same id is closed first, so a reconnect displaces the stale one.
func (h *Hub) RegisterConnection(clientID string, conn *Connection) {
	h.mu.Lock()
	if old, exists := h.members[clientID]; exists {
		old.conn.Close()
		old.conn = conn
		h.mu.Unlock()
		return
	}
	h.members[clientID] = &member{conn: conn}
	h.mu.Unlock()

	h.logger.Info().Str("client_id", clientID).Msg("connection registered")
}

// UnregisterConnection removes a connection and its room membership,
// firing a presence update for the room it was in.
func (h *Hub) UnregisterConnection(clientID string) {
	h.mu.Lock()
	m, exists := h.members[clientID]
	if !exists {
		h.mu.Unlock()
		return
	}
	m.conn.Close()
	room := m.roomCode
	delete(h.members, clientID)
	if room != "" {
		h.removeFromRoomLocked(room, clientID)
	}
	h.mu.Unlock()

	h.logger.Info().Str("client_id", clientID).Msg("connection unregistered")
	if room != "" {
		h.broadcastPresence(room)
	}
}

// JoinRoom associates a client with a room under a presence key. Membership
// changes push a presence_update to everyone in the room.
func (h *Hub) JoinRoom(roomCode, clientID, presenceKey string, isHost bool) {
	h.mu.Lock()
	m, exists := h.members[clientID]
	if !exists {
		h.mu.Unlock()
		return
	}
	if m.roomCode != "" && m.roomCode != roomCode {
		h.removeFromRoomLocked(m.roomCode, clientID)
	}
	m.roomCode = roomCode
	m.presenceKey = presenceKey
	m.host = isHost

	already := false
	for _, id := range h.rooms[roomCode] {
		if id == clientID {
			already = true
			break
		}
	}
	if !already {
		h.rooms[roomCode] = append(h.rooms[roomCode], clientID)
	}
	h.mu.Unlock()

	h.broadcastPresence(roomCode)
}

// LeaveRoom removes a client from a room without closing the connection.
func (h *Hub) LeaveRoom(roomCode, clientID string) {
	h.mu.Lock()
	if m, exists := h.members[clientID]; exists && m.roomCode == roomCode {
		m.roomCode = ""
		m.presenceKey = ""
		m.host = false
	}
	h.removeFromRoomLocked(roomCode, clientID)
	h.mu.Unlock()

	h.broadcastPresence(roomCode)
}

// Presence returns the sorted presence keys currently tracked for a room
// and whether a host-tagged member is among them.
func (h *Hub) Presence(roomCode string) (keys []string, hostPresent bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range h.rooms[roomCode] {
		m, ok := h.members[id]
		if !ok {
			continue
		}
		keys = append(keys, m.presenceKey)
		if m.host {
			hostPresent = true
		}
	}
	sort.Strings(keys)
	return keys, hostPresent
}

// BroadcastToRoom sends a message to every client in a room. Send failures
// are logged and skipped; delivery is at-least-once per connected client
// with no cross-client ordering guarantee.
func (h *Hub) BroadcastToRoom(roomCode string, msg Message) {
	h.mu.RLock()
	ids := append([]string(nil), h.rooms[roomCode]...)
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.SendTo(id, msg); err != nil {
			h.logger.Warn().Err(err).Str("client_id", id).Str("room", roomCode).Msg("room broadcast send failed")
		}
	}
}

// SendTo delivers a message to a specific client.
func (h *Hub) SendTo(clientID string, msg Message) error {
	h.mu.RLock()
	m, exists := h.members[clientID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return m.conn.Send(msg)
}

func (h *Hub) removeFromRoomLocked(roomCode, clientID string) {
	ids := h.rooms[roomCode]
	for i, id := range ids {
		if id == clientID {
			h.rooms[roomCode] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(h.rooms[roomCode]) == 0 {
		delete(h.rooms, roomCode)
	}
}

func (h *Hub) broadcastPresence(roomCode string) {
	keys, hostPresent := h.Presence(roomCode)
	msg := NewMessage(TypePresenceUpdate, PresenceUpdatePayload{
		RoomCode:    roomCode,
		Keys:        keys,
		HostPresent: hostPresent,
	})
	h.BroadcastToRoom(roomCode, msg)
}

// Connection represents a WebSocket connection with a send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends messages from the send queue.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	// Read deadline of 60s, extended on pong.
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Client connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

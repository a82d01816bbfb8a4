// Package chat provides the real-time message relay between the two
// participants of a collaboration. The relay is fire-and-forget: frames are
// broadcast to currently connected sockets only, with no retained queue and
// no delivery guarantee beyond each connection's own FIFO order.
package chat

import (
	"log/slog"
	"sync"
)

// sendBufferSize is the per-connection outbound buffer. A connection that
// falls this far behind starts losing frames.
const sendBufferSize = 64

// Conn is one websocket connection joined to a collaboration's room.
type Conn struct {
	// Send delivers outbound frames to the connection's write pump.
	Send chan []byte

	room      string
	studentID string
}

// StudentID returns the authenticated student behind the connection.
func (c *Conn) StudentID() string {
	return c.studentID
}

// Hub groups connections into rooms keyed by collaboration ID and fans
// frames out to every member of a room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Conn]struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[*Conn]struct{}),
		logger: logger,
	}
}

// Join adds a connection for the given student to a collaboration's room.
func (h *Hub) Join(collaborationID, studentID string) *Conn {
	conn := &Conn{
		Send:      make(chan []byte, sendBufferSize),
		room:      collaborationID,
		studentID: studentID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[collaborationID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[collaborationID] = room
	}
	room[conn] = struct{}{}

	h.logger.Debug("connection joined room",
		"collaboration_id", collaborationID,
		"student_id", studentID,
		"room_size", len(room),
	)
	return conn
}

// Leave removes a connection from its room and closes its send channel.
// Empty rooms are dropped.
func (h *Hub) Leave(conn *Conn) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[conn.room]
	if !ok {
		return
	}
	if _, member := room[conn]; !member {
		return
	}

	delete(room, conn)
	close(conn.Send)
	if len(room) == 0 {
		delete(h.rooms, conn.room)
	}

	h.logger.Debug("connection left room", "collaboration_id", conn.room)
}

// Broadcast sends a frame to every connection in the room. A connection
// whose buffer is full loses the frame; the relay makes no delivery
// promises.
func (h *Hub) Broadcast(collaborationID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.rooms[collaborationID] {
		select {
		case conn.Send <- frame:
		default:
			h.logger.Warn("connection buffer full, dropping frame",
				"collaboration_id", collaborationID,
				"student_id", conn.studentID,
			)
		}
	}
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(collaborationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[collaborationID])
}

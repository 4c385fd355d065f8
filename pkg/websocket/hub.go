package websocket

import "sync"

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
	}
}

// Join subscribes the client to a session's broadcast group, creating the
// room if needed. Membership happens under the hub lock so Release cannot
// prune a room a joiner is entering.
func (h *Hub) Join(sessionID string, c *Client) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[sessionID]
	if !exists {
		room = NewRoom(sessionID)
		h.rooms[sessionID] = room
	}
	room.AddClient(c)
	return room
}

// Get returns the session's room, if any local connection is subscribed.
func (h *Hub) Get(sessionID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, exists := h.rooms[sessionID]
	return room, exists
}

// Release drops the room from the hub once its last client has left, so
// rooms for finished or abandoned sessions do not accumulate.
func (h *Hub) Release(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.Size() == 0 && h.rooms[r.ID] == r {
		delete(h.rooms, r.ID)
	}
}

package websocket

import (
	"log"
	"sync"
)

// Room is the broadcast group for one game session: every connection
// subscribed to the session, including the sender of a given event.
type Room struct {
	ID      string
	mu      sync.Mutex
	clients map[string]*Client
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[string]*Client),
	}
}

func (r *Room) AddClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.ID] = c
	c.addRoom(r)
	log.Printf("Client %s joined room %s", c.ID, r.ID)
}

func (r *Room) RemoveClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clients[c.ID] == c {
		delete(r.clients, c.ID)
		c.removeRoom(r)
		log.Printf("Client %s left room %s", c.ID, r.ID)
	}
}

// Broadcast delivers message to every client in the room. Slow clients
// with a full send buffer are skipped rather than blocking the caller.
func (r *Room) Broadcast(message []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, client := range r.clients {
		select {
		case client.Send <- message:
		default:
			log.Printf("Dropping message for slow client %s in room %s", id, r.ID)
		}
	}
}

func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

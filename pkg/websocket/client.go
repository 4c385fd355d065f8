package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. A client can be subscribed to
// several rooms at once (the game it created plus the one it was matched
// into), so memberships are a set; disconnect leaves them all before the
// send channel closes.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu    sync.Mutex
	rooms map[*Room]struct{}
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:    id,
		Conn:  conn,
		Send:  make(chan []byte, 16),
		rooms: make(map[*Room]struct{}),
	}
}

func (c *Client) addRoom(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[r] = struct{}{}
}

func (c *Client) removeRoom(r *Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, r)
}

// LeaveAll removes the client from every room it is subscribed to and
// returns those rooms. Removal serializes with in-flight broadcasts under
// each room's lock, so once it returns no broadcast can reach the client
// and its send channel is safe to close.
func (c *Client) LeaveAll() []*Room {
	c.mu.Lock()
	rooms := make([]*Room, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	for _, r := range rooms {
		r.RemoveClient(c)
	}
	return rooms
}

package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaustav-de/pong-backend/internal/auth"
	"github.com/kaustav-de/pong-backend/internal/game"
	"github.com/kaustav-de/pong-backend/internal/match"
	wsPkg "github.com/kaustav-de/pong-backend/pkg/websocket"
)

type Handler struct {
	hub     *wsPkg.Hub
	auth    *auth.Service
	matcher *match.Service
	games   *game.Service
}

func NewHandler(hub *wsPkg.Hub, authService *auth.Service, matcher *match.Service, games *game.Service) *Handler {
	return &Handler{
		hub:     hub,
		auth:    authService,
		matcher: matcher,
		games:   games,
	}
}

// connection is the per-connection state. The message counters exist only
// for log cadence and are owned by the read goroutine.
type connection struct {
	client       *wsPkg.Client
	player       game.Player
	writeDone    chan struct{}
	messageCount int
	lastLogTime  time.Time
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsPkg.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	player, err := h.auth.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		payload, _ := json.Marshal(errorMessage{Type: "error", Message: err.Error()})
		conn.WriteMessage(websocket.TextMessage, payload)
		conn.Close()
		return
	}

	client := wsPkg.NewClient(player.ID, conn)
	c := &connection{
		client:      client,
		player:      player,
		writeDone:   make(chan struct{}),
		lastLogTime: time.Now(),
	}

	go h.writePump(client, c.writeDone)
	c.send(connectionEstablished{
		Type:    "connection_established",
		Message: "Connected successfully",
		User:    player,
	})
	log.Printf("User %s connected successfully", player.Username)

	h.readLoop(c)
}

func (h *Handler) readLoop(c *connection) {
	defer func() {
		// Leaving the broadcast groups is all a disconnect does: the
		// session and its tick loop keep running. The client must be out
		// of every room before Send closes, or a later broadcast would
		// hit a closed channel.
		for _, room := range c.client.LeaveAll() {
			h.hub.Release(room)
		}
		close(c.client.Send)
		// Let the write pump flush queued replies, terminal errors
		// included, before the connection drops.
		select {
		case <-c.writeDone:
		case <-time.After(time.Second):
		}
		c.client.Conn.Close()
		log.Printf("User %s disconnected", c.player.Username)
	}()

	for {
		_, raw, err := c.client.Conn.ReadMessage()
		if err != nil {
			return
		}
		if closeConn := h.handleMessage(c, raw); closeConn {
			return
		}
	}
}

// writePump drains Send until it closes, then signals done so the read
// loop knows every queued reply reached the wire.
func (h *Handler) writePump(client *wsPkg.Client, done chan<- struct{}) {
	defer close(done)
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("Write error for client %s: %v", client.ID, err)
			return
		}
	}
}

// handleMessage dispatches one inbound message. The returned flag tells the
// read loop to terminate the connection.
func (h *Handler) handleMessage(c *connection, raw []byte) bool {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Invalid JSON from %s: %v", c.player.Username, err)
		c.sendError("Invalid JSON message")
		return false
	}

	c.messageCount++
	now := time.Now()
	if c.messageCount%100 == 0 || now.Sub(c.lastLogTime) > 5*time.Second {
		log.Printf("Received message %d from %s: type=%s", c.messageCount, c.player.Username, msg.Type)
		c.lastLogTime = now
	}

	ctx := context.Background()
	switch msg.Type {
	case "heartbeat":
		c.send(heartbeatResponse{Type: "heartbeat_response"})
		return false

	case "create_game":
		return h.createGame(ctx, c)

	case "join_game":
		return h.joinGame(ctx, c)

	case "paddle_move":
		if msg.GameID == "" {
			c.sendError("Missing game_id in paddle_move message")
			return false
		}
		if msg.Direction == "" {
			c.sendError("Missing direction in paddle_move message")
			return false
		}
		if err := h.games.HandleInput(ctx, c.player.ID, msg.Direction, msg.GameID); err != nil {
			return h.replyError(c, err)
		}
		return false

	case "user_connected":
		if msg.UserID != c.player.ID || msg.Username != c.player.Username {
			c.sendError("User session mismatch")
			return true
		}
		log.Printf("User connected: %s (ID: %s)", msg.Username, msg.UserID)
		return false

	default:
		c.sendError("Unknown message type: " + msg.Type)
		return false
	}
}

func (h *Handler) createGame(ctx context.Context, c *connection) bool {
	sess, st, err := h.matcher.Create(ctx, c.player)
	if err != nil {
		return h.replyError(c, err)
	}

	h.hub.Join(sess.ID, c.client)
	c.send(gameCreated{
		Type:      "game_created",
		GameID:    sess.ID,
		PlayerID:  c.player.ID,
		GameState: st,
	})
	return false
}

func (h *Handler) joinGame(ctx context.Context, c *connection) bool {
	res, err := h.matcher.Join(ctx, c.player)
	if err != nil {
		return h.replyError(c, err)
	}

	h.hub.Join(res.Session.ID, c.client)
	if res.Reconnected {
		// Private reply only: a reconnect mutates nothing and must not
		// re-announce the join to the group.
		c.send(game.NewStateUpdateEvent(res.State))
		return false
	}
	h.games.BroadcastJoined(ctx, res.Session, res.State)
	return false
}

// replyError maps the error taxonomy onto the wire: auth errors terminate
// the connection, everything else is a reply and the channel stays open.
func (h *Handler) replyError(c *connection, err error) bool {
	switch game.KindOf(err) {
	case game.KindAuth:
		c.sendError(err.Error())
		return true
	case game.KindValidation, game.KindNotFound:
		c.sendError(err.Error())
		return false
	default:
		log.Printf("Internal error for %s: %v", c.player.Username, err)
		c.sendError("Internal server error")
		return false
	}
}

func (c *connection) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal message for %s: %v", c.player.Username, err)
		return
	}
	select {
	case c.client.Send <- payload:
	default:
		log.Printf("Dropping message for slow client %s", c.client.ID)
	}
}

func (c *connection) sendError(msg string) {
	c.send(errorMessage{Type: "error", Message: msg})
}

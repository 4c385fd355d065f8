package ws

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/kaustav-de/pong-backend/internal/store"
	wsPkg "github.com/kaustav-de/pong-backend/pkg/websocket"
)

// EventRelay subscribes to every session's event channel and fans each
// payload into the local broadcast group, so broadcasts reach connections
// on every server instance.
type EventRelay struct {
	rdb *redis.Client
	hub *wsPkg.Hub
}

func NewEventRelay(rdb *redis.Client, hub *wsPkg.Hub) *EventRelay {
	return &EventRelay{
		rdb: rdb,
		hub: hub,
	}
}

func (w *EventRelay) Run(ctx context.Context) {
	log.Println("Event relay starting...")
	pubsub := w.rdb.PSubscribe(ctx, store.EventChannelPattern())
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			sessionID, ok := store.SessionIDFromChannel(msg.Channel)
			if !ok {
				continue
			}
			// Sessions with no subscriber on this instance are skipped;
			// rooms exist only while a local connection is in them.
			if room, exists := w.hub.Get(sessionID); exists {
				room.Broadcast([]byte(msg.Payload))
			}
		}
	}
}

// Package events relays order lifecycle events through Redis pub/sub to
// the live staff feed. Publishing is best-effort: a lost event never
// affects the order itself.
package events

import (
	"context"
	"encoding/json"
	"log"

	"edabot/models"
	"edabot/rdx"
)

// Channel is the Redis pub/sub channel order events travel on.
const Channel = "order-events"

// Broadcaster is the downstream receiver of relayed events (the
// websocket hub).
type Broadcaster interface {
	Broadcast(data []byte)
}

// Emitter publishes order events.
type Emitter struct {
	Cache *rdx.Cache
}

// Publish serializes and publishes one event. Failures are logged only.
func (e *Emitter) Publish(ctx context.Context, ev models.OrderEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Println("Marshal order event error:", err)
		return
	}
	if err := e.Cache.Publish(ctx, Channel, data); err != nil {
		log.Println("Publish order event error:", err)
	}
}

// StartRelay subscribes to the event channel and forwards every payload
// to the broadcaster until ctx is canceled. Runs on its own goroutine.
func StartRelay(ctx context.Context, cache *rdx.Cache, hub Broadcaster) {
	ch := cache.Subscribe(ctx, Channel)
	log.Println("Order event relay listening on", Channel)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// validate before fan-out so subscribers only see well-formed events
			var ev models.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Println("Order event parse error:", err)
				continue
			}
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	EventTripGenerated = "TRIP_GENERATED"
	EventTripFailed    = "TRIP_FAILED"

	channel = "trip-events"
)

// TripEvent is the payload fanned out to the notification service after a
// generation attempt finishes. TripID is zero for failures.
type TripEvent struct {
	Type   string `json:"type"`
	RoomID int64  `json:"room_id"`
	TripID int64  `json:"trip_id,omitempty"`
}

type Publisher interface {
	TripGenerated(ctx context.Context, tripID, roomID int64)
	TripFailed(ctx context.Context, roomID int64)
}

// RedisPublisher publishes trip events to a Redis channel. Delivery is
// best-effort: a publish failure is logged, never propagated, because the
// generation outcome is already durable by the time events fire.
type RedisPublisher struct {
	Client *redis.Client
}

func (p RedisPublisher) TripGenerated(ctx context.Context, tripID, roomID int64) {
	p.publish(ctx, TripEvent{Type: EventTripGenerated, RoomID: roomID, TripID: tripID})
}

func (p RedisPublisher) TripFailed(ctx context.Context, roomID int64) {
	p.publish(ctx, TripEvent{Type: EventTripFailed, RoomID: roomID})
}

func (p RedisPublisher) publish(ctx context.Context, ev TripEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[EVENTS] action=publish msg=encode failed: %v", err)
		return
	}
	if err := p.Client.Publish(ctx, channel, body).Err(); err != nil {
		log.Printf("[EVENTS] action=publish type=%s room_id=%d msg=%v", ev.Type, ev.RoomID, err)
	}
}

// NopPublisher discards events; used in tests.
type NopPublisher struct{}

func (NopPublisher) TripGenerated(context.Context, int64, int64) {}
func (NopPublisher) TripFailed(context.Context, int64)           {}

// Package broker moves domain events between services over a Redis stream.
//
// One stream plays both routing roles the system needs. Across consumer
// groups it behaves as a broadcast topic: every group bound to the stream
// receives an independent copy of each entry. Within a group it behaves as
// a work queue: consumers sharing the group name compete, and each entry is
// delivered to exactly one of them until acknowledged.
package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agendly/agenda/domain"
)

// Entry field names on the wire.
const (
	fieldBody    = "body"
	fieldEventID = "id"
)

// Bus publishes domain events. It is an explicitly owned resource:
// constructed once during process startup and passed by reference into
// every component that publishes.
type Bus struct {
	rdb    *redis.Client
	stream string
	logger *zap.Logger
}

// NewBus creates a publisher bound to the named stream.
func NewBus(rdb *redis.Client, stream string, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		rdb:    rdb,
		stream: stream,
		logger: logger,
	}
}

// Publish encodes the event envelope and appends it to the stream. The
// publisher never knows its subscribers; routing is entirely the broker's
// concern.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	body, err := domain.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	eventID := uuid.NewString()
	if err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]interface{}{
			fieldEventID: eventID,
			fieldBody:    string(body),
		},
	}).Err(); err != nil {
		return fmt.Errorf("publish to stream %s: %w", b.stream, err)
	}

	b.logger.Info("event published",
		zap.String("event_type", string(event.EventType())),
		zap.String("event_id", eventID),
		zap.String("stream", b.stream),
	)
	return nil
}

package feed

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Handler is invoked once per delivered event, in per-room commit order.
type Handler func(Event)

// Subscriber maintains a standing subscription to one room's list events.
type Subscriber struct {
	nc *nats.Conn
}

// NewSubscriber creates a subscriber on an existing NATS connection.
func NewSubscriber(nc *nats.Conn) *Subscriber {
	return &Subscriber{nc: nc}
}

// Subscription is a live per-room subscription. Close releases it; no
// handler invocation happens after Close returns.
type Subscription struct {
	sub *nats.Subscription
}

// Subscribe attaches handler to a room's subject. Events published while
// the transport is down are not buffered or redelivered; recovering from a
// gap is the reconciler's job via snapshot re-fetch.
func (s *Subscriber) Subscribe(roomID uuid.UUID, handler Handler) (*Subscription, error) {
	subject := SubjectForRoom(roomID)
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to decode feed event")
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	log.Info().Str("subject", subject).Msg("feed subscription attached")
	return &Subscription{sub: sub}, nil
}

// Close releases the subscription. Deterministic: the room view's teardown
// must not leak listeners.
func (s *Subscription) Close() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

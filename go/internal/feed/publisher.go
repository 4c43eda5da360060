package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers feed events onto the transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher publishes events onto per-room NATS subjects. Plain core
// NATS, no JetStream: the feed is a transient live-update channel, and
// subscribers recover gaps with a snapshot re-fetch.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher creates a publisher on an existing NATS connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Publish sends one event to its room's subject.
func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	roomID, err := uuid.Parse(event.RoomID)
	if err != nil {
		return fmt.Errorf("parse room ID: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.nc.Publish(SubjectForRoom(roomID), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("room_id", event.RoomID).
		Str("event_type", string(event.Type)).
		Msg("event published")
	return nil
}

// Connect dials NATS with the reconnect behavior used across the service.
// Extra options append after the defaults and may override them.
func Connect(url string, extra ...nats.Option) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	opts = append(opts, extra...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/feed"
)

// ConsumerConfig holds configuration for the feed event consumer.
type ConsumerConfig struct {
	URL           string
	SubjectFilter string // e.g. "rooms.>"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns default feed consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		SubjectFilter: "rooms.>",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EventConsumer consumes room feed events and broadcasts them to WebSocket
// clients. The feed is transient: no acks, no replay, clients recover gaps
// with a snapshot re-fetch.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	sub               *nats.Subscription
	config            ConsumerConfig
}

// NewEventConsumer creates a feed event consumer connected to NATS.
func NewEventConsumer(cm *ConnectionManager, config ConsumerConfig) (*EventConsumer, error) {
	nc, err := feed.Connect(config.URL,
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		config:            config,
	}, nil
}

// Start subscribes to all room subjects and blocks until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	sub, err := ec.nc.Subscribe(ec.config.SubjectFilter, ec.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ec.config.SubjectFilter, err)
	}
	ec.sub = sub

	log.Info().
		Str("subject", ec.config.SubjectFilter).
		Msg("feed event consumer started")

	<-ctx.Done()
	return nil
}

func (ec *EventConsumer) handleMessage(msg *nats.Msg) {
	var event feed.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject).
			Msg("failed to unmarshal feed event")
		return
	}

	roomID, err := uuid.Parse(event.RoomID)
	if err != nil {
		log.Error().
			Err(err).
			Str("room_id", event.RoomID).
			Msg("feed event carries invalid room id")
		return
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("room_id", event.RoomID).
		Msg("consuming feed event")

	ec.connectionManager.BroadcastToRoom(roomID, event)
}

// Stop unsubscribes and closes the NATS connection.
func (ec *EventConsumer) Stop() error {
	if ec.sub != nil {
		if err := ec.sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe feed consumer")
		}
	}
	if ec.nc != nil {
		ec.nc.Close()
	}
	log.Info().Msg("feed event consumer stopped")
	return nil
}

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/models"
)

// RelayConfig holds configuration for the Postgres NOTIFY relay.
type RelayConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // Channel name to LISTEN on
	PingInterval  time.Duration // Connection liveness check cadence
}

// DefaultRelayConfig returns default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel: "item_events",
		PingInterval:  90 * time.Second,
	}
}

// itemNotification is the payload the items table trigger NOTIFYs on every
// committed insert or delete.
type itemNotification struct {
	Op     string       `json:"op"` // INSERT or DELETE
	Item   *models.Item `json:"item,omitempty"`
	RoomID *uuid.UUID   `json:"room_id,omitempty"`
	ItemID *uuid.UUID   `json:"item_id,omitempty"`
}

// Relay bridges committed item mutations from Postgres onto the feed
// transport. It carries no buffer: a notification missed while the listener
// connection is down is gone, and clients recover via snapshot re-fetch.
type Relay struct {
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig
}

// NewRelay opens a LISTEN connection on the configured channel.
func NewRelay(publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for item notifications")

	return &Relay{
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Start consumes notifications until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(r.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("feed relay shutting down")
			return r.Stop()
		case note := <-r.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost and
				// re-established; anything sent in the gap is not coming.
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the LISTEN connection.
func (r *Relay) Stop() error {
	return r.listener.Close()
}

func (r *Relay) handleNotification(ctx context.Context, payload string) error {
	var note itemNotification
	if err := json.Unmarshal([]byte(payload), &note); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}

	event, err := eventFromNotification(note)
	if err != nil {
		return err
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	log.Debug().
		Str("event_id", event.ID).
		Str("room_id", event.RoomID).
		Str("event_type", string(event.Type)).
		Msg("relayed item notification")
	return nil
}

func eventFromNotification(note itemNotification) (Event, error) {
	switch note.Op {
	case "INSERT":
		if note.Item == nil {
			return Event{}, fmt.Errorf("INSERT notification without item")
		}
		return NewItemAdded(*note.Item)
	case "DELETE":
		if note.RoomID == nil || note.ItemID == nil {
			return Event{}, fmt.Errorf("DELETE notification without identifiers")
		}
		return NewItemRemoved(*note.RoomID, *note.ItemID)
	default:
		return Event{}, fmt.Errorf("unknown notification op: %q", note.Op)
	}
}

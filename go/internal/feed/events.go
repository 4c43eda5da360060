// Package feed carries the live change feed for room lists: a Postgres
// NOTIFY relay on the server side and a per-room NATS subscription on the
// client side. The feed is transient by design; events missed while
// disconnected are recovered by a snapshot re-fetch, never replayed here.
package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duopick/duopick/go/internal/models"
)

// EventType identifies a list mutation.
type EventType string

const (
	EventTypeItemAdded   EventType = "item_added"
	EventTypeItemRemoved EventType = "item_removed"
)

// Event is the envelope delivered for every committed list mutation in a
// room, in commit order per room.
type Event struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ItemAddedPayload carries the full new item.
type ItemAddedPayload struct {
	Item models.Item `json:"item"`
}

// ItemRemovedPayload carries the removed item's identifier.
type ItemRemovedPayload struct {
	ItemID uuid.UUID `json:"item_id"`
}

// NewItemAdded builds an addition event for a stored item.
func NewItemAdded(item models.Item) (Event, error) {
	data, err := json.Marshal(ItemAddedPayload{Item: item})
	if err != nil {
		return Event{}, fmt.Errorf("marshal item_added payload: %w", err)
	}
	return Event{
		ID:        uuid.New().String(),
		RoomID:    item.RoomID.String(),
		Type:      EventTypeItemAdded,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// NewItemRemoved builds a removal event.
func NewItemRemoved(roomID, itemID uuid.UUID) (Event, error) {
	data, err := json.Marshal(ItemRemovedPayload{ItemID: itemID})
	if err != nil {
		return Event{}, fmt.Errorf("marshal item_removed payload: %w", err)
	}
	return Event{
		ID:        uuid.New().String(),
		RoomID:    roomID.String(),
		Type:      EventTypeItemRemoved,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// ParsePayload decodes an event's payload into its typed form.
func ParsePayload(event Event) (interface{}, error) {
	switch event.Type {
	case EventTypeItemAdded:
		var payload ItemAddedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case EventTypeItemRemoved:
		var payload ItemRemovedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}

// SubjectForRoom returns the NATS subject carrying one room's list events.
// A client is never subscribed to more than one room, so no cross-room
// ordering is needed or provided.
func SubjectForRoom(roomID uuid.UUID) string {
	return fmt.Sprintf("rooms.%s.items", roomID)
}

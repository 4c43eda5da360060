package feed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duopick/duopick/go/internal/models"
)

func TestItemAddedRoundTrip(t *testing.T) {
	item := models.Item{
		ID:        uuid.New(),
		RoomID:    uuid.New(),
		Name:      "tteokbokki",
		CreatedAt: time.Now().UTC(),
	}

	event, err := NewItemAdded(item)
	require.NoError(t, err)
	assert.Equal(t, EventTypeItemAdded, event.Type)
	assert.Equal(t, item.RoomID.String(), event.RoomID)

	payload, err := ParsePayload(event)
	require.NoError(t, err)
	added, ok := payload.(ItemAddedPayload)
	require.True(t, ok)
	assert.Equal(t, item.ID, added.Item.ID)
	assert.Equal(t, item.Name, added.Item.Name)
}

func TestItemRemovedRoundTrip(t *testing.T) {
	roomID, itemID := uuid.New(), uuid.New()

	event, err := NewItemRemoved(roomID, itemID)
	require.NoError(t, err)
	assert.Equal(t, EventTypeItemRemoved, event.Type)

	payload, err := ParsePayload(event)
	require.NoError(t, err)
	removed, ok := payload.(ItemRemovedPayload)
	require.True(t, ok)
	assert.Equal(t, itemID, removed.ItemID)
}

func TestParsePayloadUnknownType(t *testing.T) {
	_, err := ParsePayload(Event{Type: "item_renamed"})
	assert.Error(t, err)
}

func TestSubjectForRoomIsScopedPerRoom(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.NotEqual(t, SubjectForRoom(a), SubjectForRoom(b))
	assert.Contains(t, SubjectForRoom(a), a.String())
}

func TestEventFromNotification(t *testing.T) {
	item := models.Item{ID: uuid.New(), RoomID: uuid.New(), Name: "pho"}

	event, err := eventFromNotification(itemNotification{Op: "INSERT", Item: &item})
	require.NoError(t, err)
	assert.Equal(t, EventTypeItemAdded, event.Type)

	roomID, itemID := uuid.New(), uuid.New()
	event, err = eventFromNotification(itemNotification{Op: "DELETE", RoomID: &roomID, ItemID: &itemID})
	require.NoError(t, err)
	assert.Equal(t, EventTypeItemRemoved, event.Type)

	_, err = eventFromNotification(itemNotification{Op: "UPDATE"})
	assert.Error(t, err)

	_, err = eventFromNotification(itemNotification{Op: "INSERT"})
	assert.Error(t, err)
}

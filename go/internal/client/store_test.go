package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/models"
)

func TestStoreSendsIdentityHeader(t *testing.T) {
	userID := uuid.New()
	roomID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userID.String(), r.Header.Get("X-User-ID"))
		json.NewEncoder(w).Encode(Room{ID: roomID, InviteCode: "ABCD2345"})
	}))
	defer srv.Close()

	room, err := NewStore(srv.URL, userID).MyRoom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roomID, room.ID)
	assert.Equal(t, "ABCD2345", room.InviteCode)
}

func TestMyRoomNotPaired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not paired", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewStore(srv.URL, uuid.New()).MyRoom(context.Background())
	assert.ErrorIs(t, err, ErrNotPaired)
}

func TestJoinRoomPostsCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rooms/join", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ABCD2345", body["code"])

		json.NewEncoder(w).Encode(Room{ID: uuid.New(), InviteCode: "ABCD2345"})
	}))
	defer srv.Close()

	_, err := NewStore(srv.URL, uuid.New()).JoinRoom(context.Background(), "ABCD2345")
	require.NoError(t, err)
}

func TestAddItemRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items", r.URL.Path)

		var req items.CreateItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sundubu", req.Name)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Item{
			ID: uuid.New(), RoomID: uuid.New(), Name: req.Name, CreatedAt: time.Now(),
		})
	}))
	defer srv.Close()

	item, err := NewStore(srv.URL, uuid.New()).AddItem(context.Background(),
		items.CreateItemRequest{Name: "sundubu"})
	require.NoError(t, err)
	assert.Equal(t, "sundubu", item.Name)
}

func TestRemoveItemHitsItemPath(t *testing.T) {
	itemID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/items/"+itemID.String(), r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewStore(srv.URL, uuid.New()).RemoveItem(context.Background(), itemID)
	require.NoError(t, err)
}

func TestErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "room is full", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewStore(srv.URL, uuid.New()).JoinRoom(context.Background(), "ABCD2345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room is full")
	assert.Contains(t, err.Error(), "409")
}

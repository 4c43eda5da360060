package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/rooms"
)

// WebSocketHandler handles WebSocket upgrade requests for room feeds.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	rooms             *rooms.App
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, roomsApp *rooms.App) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		rooms:             roomsApp,
	}
}

// HandleRoomConnection handles WebSocket connections for a specific room.
// Only a member of the room may attach to its feed.
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("room_id")
	if roomIDStr == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		http.Error(w, "invalid room_id format", http.StatusBadRequest)
		return
	}

	userID, err := userIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	room, err := h.rooms.RoomForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			http.Error(w, "not a member of any room", http.StatusForbidden)
			return
		}
		http.Error(w, "failed to resolve membership", http.StatusInternalServerError)
		return
	}
	if room.ID != roomID {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID.String(), roomID); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID.String()).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, activeRooms := h.connectionManager.ConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"total_connections": total,
		"active_rooms":      activeRooms,
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

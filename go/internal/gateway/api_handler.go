package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/models"
	"github.com/duopick/duopick/go/internal/rooms"
)

// APIHandler serves the room and item HTTP endpoints. The caller identifies
// itself with the X-User-ID header; every item operation is scoped to the
// caller's own room.
type APIHandler struct {
	rooms *rooms.App
	items *items.App
}

// NewAPIHandler creates the HTTP API handler.
func NewAPIHandler(roomsApp *rooms.App, itemsApp *items.App) *APIHandler {
	return &APIHandler{
		rooms: roomsApp,
		items: itemsApp,
	}
}

// RegisterRoutes registers the API routes with an HTTP mux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", h.handleCreateRoom)
	mux.HandleFunc("/api/rooms/join", h.handleJoinRoom)
	mux.HandleFunc("/api/rooms/mine", h.handleMyRoom)
	mux.HandleFunc("/api/items", h.handleItems)
	mux.HandleFunc("/api/items/", h.handleItemByID)
}

// userIDFromRequest extracts the caller identity from the X-User-ID header.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errors.New("X-User-ID header is required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid X-User-ID: %w", err)
	}
	return userID, nil
}

type roomResponse struct {
	ID         uuid.UUID `json:"id"`
	InviteCode string    `json:"invite_code"`
	CreatedAt  string    `json:"created_at"`
}

func toRoomResponse(room *models.Room) roomResponse {
	return roomResponse{
		ID:         room.ID,
		InviteCode: room.InviteCode,
		CreatedAt:  room.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (h *APIHandler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := userIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), userID)
	if err != nil {
		h.writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomResponse(room))
}

func (h *APIHandler) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := userIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room, err := h.rooms.JoinRoom(r.Context(), userID, req.Code)
	if err != nil {
		h.writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

func (h *APIHandler) handleMyRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
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
			http.Error(w, "not paired", http.StatusNotFound)
			return
		}
		h.writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(room))
}

// handleItems serves GET (list) and POST (create) on the caller's room.
func (h *APIHandler) handleItems(w http.ResponseWriter, r *http.Request) {
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

	switch r.Method {
	case http.MethodGet:
		list, err := h.items.ListItems(r.Context(), room.ID)
		if err != nil {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("list items failed")
			http.Error(w, "failed to list items", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Item{}
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req items.CreateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		// The room is the caller's membership, never client-supplied.
		req.RoomID = room.ID

		item, err := h.items.AddItem(r.Context(), req)
		if err != nil {
			h.writeItemError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleItemByID serves DELETE /api/items/{id}.
func (h *APIHandler) handleItemByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := userIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	itemID, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/items/"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
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

	item, err := h.items.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, items.ErrItemNotFound) {
			// Deleting an already-gone item succeeds; the state agrees.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "failed to load item", http.StatusInternalServerError)
		return
	}
	if item.RoomID != room.ID {
		// Other rooms' items are indistinguishable from absent ones.
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}

	if err := h.items.RemoveItem(r.Context(), itemID); err != nil {
		log.Error().Err(err).Str("item_id", itemID.String()).Msg("remove item failed")
		http.Error(w, "failed to remove item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rooms.ErrEmptyCode), errors.Is(err, rooms.ErrInvalidCode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rooms.ErrRoomFull), errors.Is(err, rooms.ErrAlreadyJoined):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, rooms.ErrCreatorNotJoined):
		// Partial failure: the room row exists but the creator is not in
		// it. A retry cannot fix this state, so it must not look like a
		// transient failure.
		log.Error().Err(err).Msg("room created without creator membership")
		http.Error(w, rooms.ErrCreatorNotJoined.Error(), http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg("room operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeItemError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, items.ErrEmptyName), errors.Is(err, items.ErrInvalidWishedBy):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, items.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Error().Err(err).Msg("item operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

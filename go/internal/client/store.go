// Package client is the Go client for the duopick server: room pairing and
// item mutations over the HTTP API, feed attachment over WebSocket or NATS.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/models"
)

// ErrNotPaired is returned when the user has no room yet.
var ErrNotPaired = errors.New("not paired with a room")

// Store talks to the server's HTTP API on behalf of one user. It satisfies
// the reconciler's store surface, so a remote client merges list state
// through the same path as server-side code.
type Store struct {
	baseURL string
	userID  uuid.UUID
	http    *http.Client
}

// NewStore creates an API client for the given server and user.
func NewStore(baseURL string, userID uuid.UUID) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// apiError carries a non-2xx response.
type apiError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-User-ID", s.userID.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Room mirrors the server's room response.
type Room struct {
	ID         uuid.UUID `json:"id"`
	InviteCode string    `json:"invite_code"`
}

// CreateRoom creates a room and pairs the user into it.
func (s *Store) CreateRoom(ctx context.Context) (*Room, error) {
	var room Room
	if err := s.do(ctx, http.MethodPost, "/api/rooms", nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// JoinRoom pairs the user into a room by invite code.
func (s *Store) JoinRoom(ctx context.Context, code string) (*Room, error) {
	var room Room
	body := map[string]string{"code": code}
	if err := s.do(ctx, http.MethodPost, "/api/rooms/join", body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// MyRoom resolves the user's room, or ErrNotPaired.
func (s *Store) MyRoom(ctx context.Context) (*Room, error) {
	var room Room
	err := s.do(ctx, http.MethodGet, "/api/rooms/mine", nil, &room)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrNotPaired
		}
		return nil, err
	}
	return &room, nil
}

// AddItem submits a new item. The room is assigned server-side from the
// user's membership.
func (s *Store) AddItem(ctx context.Context, req items.CreateItemRequest) (*models.Item, error) {
	var item models.Item
	if err := s.do(ctx, http.MethodPost, "/api/items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes an item. Deleting an absent item succeeds.
func (s *Store) RemoveItem(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, http.MethodDelete, "/api/items/"+id.String(), nil, nil)
}

// ListItems fetches the room's items, newest first.
func (s *Store) ListItems(ctx context.Context, _ uuid.UUID) ([]models.Item, error) {
	var list []models.Item
	if err := s.do(ctx, http.MethodGet, "/api/items", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/models"
)

var (
	// ErrEmptyName is returned when an item name is empty after trimming.
	// Reported before any store call is attempted.
	ErrEmptyName = errors.New("item name is empty")
	// ErrInvalidWishedBy is returned for a tag outside the fixed enumeration.
	ErrInvalidWishedBy = errors.New("invalid wished_by tag")
	// ErrItemNotFound is returned when an item lookup matches no row.
	ErrItemNotFound = errors.New("item not found")
)

// CreateItemRequest carries the fields of a new list item.
type CreateItemRequest struct {
	RoomID   uuid.UUID        `json:"room_id"`
	Name     string           `json:"name"`
	Location *string          `json:"location,omitempty"`
	WishedBy *models.WishedBy `json:"wished_by,omitempty"`
}

// ItemRepository defines what the app layer needs from the repository.
type ItemRepository interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*models.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, roomID uuid.UUID) ([]models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	CountItems(ctx context.Context, roomID uuid.UUID) (int, error)
}

// App handles list item business logic.
type App struct {
	repo ItemRepository
}

// NewApp creates a new items App.
func NewApp(repo ItemRepository) *App {
	return &App{repo: repo}
}

// AddItem validates and stores a new item. The stored row is returned, but
// connected views pick the addition up through the change feed, not from
// this return value.
func (a *App) AddItem(ctx context.Context, req CreateItemRequest) (*models.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrEmptyName
	}
	if req.Location != nil {
		trimmed := strings.TrimSpace(*req.Location)
		if trimmed == "" {
			req.Location = nil
		} else {
			req.Location = &trimmed
		}
	}
	if req.WishedBy != nil && !models.ValidWishedBy(*req.WishedBy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWishedBy, *req.WishedBy)
	}

	item, err := a.repo.CreateItem(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	log.Debug().
		Str("item_id", item.ID.String()).
		Str("room_id", item.RoomID.String()).
		Msg("item added")
	return item, nil
}

// GetItem fetches one item by ID.
func (a *App) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return a.repo.GetItem(ctx, id)
}

// RemoveItem deletes an item by ID.
func (a *App) RemoveItem(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// ListItems returns a room's items, newest first.
func (a *App) ListItems(ctx context.Context, roomID uuid.UUID) ([]models.Item, error) {
	return a.repo.ListItems(ctx, roomID)
}

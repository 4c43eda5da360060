package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duopick/duopick/go/internal/models"
)

// Repository implements list item data access on Postgres. Items are
// create/delete only; there is no update statement here on purpose.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new items repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateItem inserts an item and returns the stored row, including the
// server-assigned creation timestamp used for ordering.
func (r *Repository) CreateItem(ctx context.Context, req CreateItemRequest) (*models.Item, error) {
	var item models.Item
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (id, room_id, name, location, wished_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, room_id, name, location, wished_by, created_at`,
		uuid.New(), req.RoomID, req.Name, req.Location, req.WishedBy,
	).Scan(&item.ID, &item.RoomID, &item.Name, &item.Location, &item.WishedBy, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

// DeleteItem removes an item by ID. Deleting an absent ID is not an error;
// the row is simply already gone.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ListItems returns all items for a room ordered by creation time
// descending. This is the snapshot the reconciler loads.
func (r *Repository) ListItems(ctx context.Context, roomID uuid.UUID) ([]models.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, name, location, wished_by, created_at
		 FROM items WHERE room_id = $1
		 ORDER BY created_at DESC, id DESC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.RoomID, &item.Name, &item.Location, &item.WishedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem retrieves a single item by ID.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.pool.QueryRow(ctx,
		`SELECT id, room_id, name, location, wished_by, created_at
		 FROM items WHERE id = $1`, id,
	).Scan(&item.ID, &item.RoomID, &item.Name, &item.Location, &item.WishedBy, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// CountItems returns the exact number of items in a room.
func (r *Repository) CountItems(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE room_id = $1`, roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

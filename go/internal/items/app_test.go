package items

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duopick/duopick/go/internal/models"
)

type fakeItemRepo struct {
	created []CreateItemRequest
	deleted []uuid.UUID
}

func (f *fakeItemRepo) CreateItem(_ context.Context, req CreateItemRequest) (*models.Item, error) {
	f.created = append(f.created, req)
	return &models.Item{
		ID:        uuid.New(),
		RoomID:    req.RoomID,
		Name:      req.Name,
		Location:  req.Location,
		WishedBy:  req.WishedBy,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeItemRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeItemRepo) ListItems(_ context.Context, _ uuid.UUID) ([]models.Item, error) {
	return nil, nil
}

func (f *fakeItemRepo) GetItem(_ context.Context, _ uuid.UUID) (*models.Item, error) {
	return nil, ErrItemNotFound
}

func (f *fakeItemRepo) CountItems(_ context.Context, _ uuid.UUID) (int, error) {
	return len(f.created), nil
}

func TestAddItemTrimsName(t *testing.T) {
	repo := &fakeItemRepo{}
	app := NewApp(repo)

	item, err := app.AddItem(context.Background(), CreateItemRequest{
		RoomID: uuid.New(),
		Name:   "  samgyeopsal  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "samgyeopsal", item.Name)
}

func TestAddItemRejectsEmptyName(t *testing.T) {
	repo := &fakeItemRepo{}
	app := NewApp(repo)

	_, err := app.AddItem(context.Background(), CreateItemRequest{
		RoomID: uuid.New(),
		Name:   "   ",
	})
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, repo.created, "no store call may be attempted")
}

func TestAddItemDropsBlankLocation(t *testing.T) {
	repo := &fakeItemRepo{}
	app := NewApp(repo)

	loc := "   "
	item, err := app.AddItem(context.Background(), CreateItemRequest{
		RoomID:   uuid.New(),
		Name:     "sushi",
		Location: &loc,
	})
	require.NoError(t, err)
	assert.Nil(t, item.Location)
}

func TestAddItemValidatesWishedBy(t *testing.T) {
	repo := &fakeItemRepo{}
	app := NewApp(repo)

	bad := models.WishedBy("stranger")
	_, err := app.AddItem(context.Background(), CreateItemRequest{
		RoomID:   uuid.New(),
		Name:     "malatang",
		WishedBy: &bad,
	})
	assert.ErrorIs(t, err, ErrInvalidWishedBy)

	good := models.WishedByBoth
	item, err := app.AddItem(context.Background(), CreateItemRequest{
		RoomID:   uuid.New(),
		Name:     "malatang",
		WishedBy: &good,
	})
	require.NoError(t, err)
	require.NotNil(t, item.WishedBy)
	assert.Equal(t, models.WishedByBoth, *item.WishedBy)
}

func TestRemoveItemDelegates(t *testing.T) {
	repo := &fakeItemRepo{}
	app := NewApp(repo)
	id := uuid.New()

	require.NoError(t, app.RemoveItem(context.Background(), id))
	assert.Equal(t, []uuid.UUID{id}, repo.deleted)
}

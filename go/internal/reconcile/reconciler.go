// Package reconcile maintains the locally consistent view of one room's
// list. All state lives behind a single-consumer op loop: feed callbacks
// and local operations are serialized through one channel, so no two
// mutations of the sequence ever interleave.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/feed"
	"github.com/duopick/duopick/go/internal/items"
	"github.com/duopick/duopick/go/internal/models"
)

// ErrClosed is returned by operations on a torn-down reconciler.
var ErrClosed = errors.New("reconciler closed")

// Store is the mutation and snapshot surface the reconciler needs from the
// authoritative store. The server's items app satisfies it directly; a
// remote client satisfies it over HTTP.
type Store interface {
	AddItem(ctx context.Context, req items.CreateItemRequest) (*models.Item, error)
	RemoveItem(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, roomID uuid.UUID) ([]models.Item, error)
}

// Reconciler owns the in-memory ordered item sequence for one room.
type Reconciler struct {
	roomID uuid.UUID
	store  Store

	ops  chan func()
	quit chan struct{}

	// accessed only from the op loop
	list  []models.Item
	index map[uuid.UUID]struct{}
}

// New creates a reconciler for a room and starts its op loop. The sequence
// is empty until LoadSnapshot runs.
func New(roomID uuid.UUID, store Store) *Reconciler {
	r := &Reconciler{
		roomID: roomID,
		store:  store,
		ops:    make(chan func()),
		quit:   make(chan struct{}),
		index:  make(map[uuid.UUID]struct{}),
	}
	go r.loop()
	return r
}

func (r *Reconciler) loop() {
	for {
		select {
		case <-r.quit:
			return
		case op := <-r.ops:
			op()
		}
	}
}

// do runs fn on the op loop and waits for it. Every touch of list/index
// goes through here.
func (r *Reconciler) do(fn func()) error {
	done := make(chan struct{})
	select {
	case <-r.quit:
		return ErrClosed
	case r.ops <- func() { fn(); close(done) }:
	}
	select {
	case <-r.quit:
		return ErrClosed
	case <-done:
		return nil
	}
}

// Close tears the reconciler down. Pending and subsequent operations
// return ErrClosed.
func (r *Reconciler) Close() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
}

// LoadSnapshot replaces the entire local sequence with a full fetch,
// ordered newest first by the store. Used once at attach time, and as the
// sole recovery path after a feed gap.
func (r *Reconciler) LoadSnapshot(ctx context.Context) error {
	fetched, err := r.store.ListItems(ctx, r.roomID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return r.do(func() {
		r.list = fetched
		r.index = make(map[uuid.UUID]struct{}, len(fetched))
		for _, item := range fetched {
			r.index[item.ID] = struct{}{}
		}
	})
}

// ApplyAddition inserts a feed-delivered item at the front of the sequence.
// Idempotent: a locally issued create and its feed echo must not produce
// two entries, so a known ID is dropped. Front insertion is correct because
// every genuinely new delivery is the newest item.
func (r *Reconciler) ApplyAddition(item models.Item) error {
	return r.do(func() {
		if _, present := r.index[item.ID]; present {
			return
		}
		r.list = append([]models.Item{item}, r.list...)
		r.index[item.ID] = struct{}{}
	})
}

// ApplyRemoval drops the entry with the given ID. Removing an absent ID is
// a no-op, not an error: a delete's feed echo can arrive after a re-fetch
// already reflected the deletion, or arrive twice.
func (r *Reconciler) ApplyRemoval(itemID uuid.UUID) error {
	return r.do(func() {
		if _, present := r.index[itemID]; !present {
			return
		}
		delete(r.index, itemID)
		for i, item := range r.list {
			if item.ID == itemID {
				r.list = append(r.list[:i], r.list[i+1:]...)
				break
			}
		}
	})
}

// MutateAdd validates the candidate and submits it to the store. The local
// sequence is deliberately untouched here: the visible effect arrives via
// the feed's addition event, keeping a single source of truth instead of a
// separate optimistic path.
func (r *Reconciler) MutateAdd(ctx context.Context, req items.CreateItemRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return items.ErrEmptyName
	}
	req.RoomID = r.roomID
	if _, err := r.store.AddItem(ctx, req); err != nil {
		return fmt.Errorf("mutate add: %w", err)
	}
	return nil
}

// MutateRemove submits a delete to the store; the local effect arrives via
// the feed, like MutateAdd.
func (r *Reconciler) MutateRemove(ctx context.Context, itemID uuid.UUID) error {
	if err := r.store.RemoveItem(ctx, itemID); err != nil {
		return fmt.Errorf("mutate remove: %w", err)
	}
	return nil
}

// HandleEvent is the feed subscription handler: it routes additions and
// removals for this room through the same serialized merge path as local
// operations. Events for other rooms are ignored.
func (r *Reconciler) HandleEvent(event feed.Event) {
	if event.RoomID != r.roomID.String() {
		return
	}
	payload, err := feed.ParsePayload(event)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("undecodable feed event")
		return
	}
	switch p := payload.(type) {
	case feed.ItemAddedPayload:
		if err := r.ApplyAddition(p.Item); err != nil && !errors.Is(err, ErrClosed) {
			log.Error().Err(err).Msg("apply addition")
		}
	case feed.ItemRemovedPayload:
		if err := r.ApplyRemoval(p.ItemID); err != nil && !errors.Is(err, ErrClosed) {
			log.Error().Err(err).Msg("apply removal")
		}
	}
}

// Items returns a copy of the current sequence, newest first.
func (r *Reconciler) Items() []models.Item {
	var out []models.Item
	if err := r.do(func() {
		out = make([]models.Item, len(r.list))
		copy(out, r.list)
	}); err != nil {
		return nil
	}
	return out
}

// Len returns the current sequence length.
func (r *Reconciler) Len() int {
	n := 0
	_ = r.do(func() { n = len(r.list) })
	return n
}

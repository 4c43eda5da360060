package models

import (
	"time"

	"github.com/google/uuid"
)

// WishedBy tags which partner wanted the item.
type WishedBy string

const (
	WishedByGirlfriend WishedBy = "girlfriend"
	WishedByBoyfriend  WishedBy = "boyfriend"
	WishedByBoth       WishedBy = "both"
)

// ValidWishedBy reports whether w is one of the known tag values.
func ValidWishedBy(w WishedBy) bool {
	switch w {
	case WishedByGirlfriend, WishedByBoyfriend, WishedByBoth:
		return true
	}
	return false
}

// Item is one entry on a room's shared list. Items are create/delete only;
// there is no update-in-place. CreatedAt is the sole ordering key, newest
// first.
type Item struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Name      string    `json:"name"`
	Location  *string   `json:"location,omitempty"`
	WishedBy  *WishedBy `json:"wished_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

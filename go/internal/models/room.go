package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a pairing context shared by at most two users and their list.
type Room struct {
	ID         uuid.UUID `json:"id"`
	InviteCode string    `json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// MaxRoomMembers is the hard capacity of a room. The schema enforces it
// with a trigger; the coordinator's count check alone is not authoritative.
const MaxRoomMembers = 2

// Membership binds one user to one room. A user has at most one membership.
type Membership struct {
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

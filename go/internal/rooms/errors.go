package rooms

import "errors"

var (
	// ErrEmptyCode is returned when a join request carries no code after trimming.
	ErrEmptyCode = errors.New("invite code is empty")
	// ErrInvalidCode is returned when no room matches the normalized code.
	// Lookup failures are folded in; both are user-facing as "no such code".
	ErrInvalidCode = errors.New("invalid invite code")
	// ErrRoomFull is returned when the room already has two members.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyJoined is returned when the membership insert is rejected,
	// which under the schema constraints means the user is already paired.
	ErrAlreadyJoined = errors.New("already joined a room")
	// ErrCreatorNotJoined reports the partial failure where the room row was
	// created but the creator's membership insert failed. The room is
	// orphaned; callers must surface this, never swallow it.
	ErrCreatorNotJoined = errors.New("room created but creator not joined")
	// ErrRoomCreationFailed is returned after exhausting invite code retries.
	ErrRoomCreationFailed = errors.New("room creation failed")
)

package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/duopick/duopick/go/internal/invite"
	"github.com/duopick/duopick/go/internal/models"
)

// createRetries bounds the invite code collision retry loop. With a 32^8
// code space more than one collision in a row is already extraordinary.
const createRetries = 5

// RoomRepository defines what the app layer needs from the repository.
type RoomRepository interface {
	CreateRoom(ctx context.Context, inviteCode string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	GetMembershipByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error)
	CountMembers(ctx context.Context, roomID uuid.UUID) (int, error)
	CreateMembership(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error)
}

// App coordinates room pairing. Per user the lifecycle is
// Unpaired -> (CreateRoom | JoinRoom) -> Paired; there is no way back.
type App struct {
	repo     RoomRepository
	generate func() string
}

// NewApp creates a new rooms App.
func NewApp(repo RoomRepository) *App {
	return &App{
		repo:     repo,
		generate: invite.Generate,
	}
}

// CreateRoom creates a room with a fresh invite code and joins the creator
// to it. If the user is already paired, their existing room is returned
// instead; duplicate submissions and UI re-entry are expected, not errors.
func (a *App) CreateRoom(ctx context.Context, userID uuid.UUID) (*models.Room, error) {
	if existing, err := a.repo.GetMembershipByUser(ctx, userID); err == nil {
		room, err := a.repo.GetRoom(ctx, existing.RoomID)
		if err != nil {
			return nil, fmt.Errorf("load existing room: %w", err)
		}
		log.Debug().
			Str("user_id", userID.String()).
			Str("room_id", room.ID.String()).
			Msg("create short-circuited to existing membership")
		return room, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing membership: %w", err)
	}

	var room *models.Room
	for attempt := 0; attempt < createRetries; attempt++ {
		created, err := a.repo.CreateRoom(ctx, a.generate())
		if err == nil {
			room = created
			break
		}
		if errors.Is(err, ErrConstraint) {
			// Code collision: try again with a fresh code. Any other
			// failure is not retried.
			log.Warn().Int("attempt", attempt+1).Msg("invite code collision, regenerating")
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrRoomCreationFailed, err)
	}
	if room == nil {
		return nil, fmt.Errorf("%w: exhausted %d attempts", ErrRoomCreationFailed, createRetries)
	}

	if _, err := a.repo.CreateMembership(ctx, room.ID, userID); err != nil {
		// The room row exists but the creator is not in it. Surface this
		// distinctly so the orphaned room is never silently lost.
		log.Error().
			Err(err).
			Str("room_id", room.ID.String()).
			Str("user_id", userID.String()).
			Msg("membership insert failed after room creation")
		return nil, fmt.Errorf("%w: %v", ErrCreatorNotJoined, err)
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("user_id", userID.String()).
		Msg("room created")
	return room, nil
}

// JoinRoom pairs a user into an existing room by invite code. The code is
// normalized (trimmed, uppercased) before lookup. If the user is already
// paired, their existing room is returned, mirroring CreateRoom.
func (a *App) JoinRoom(ctx context.Context, userID uuid.UUID, code string) (*models.Room, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	if existing, err := a.repo.GetMembershipByUser(ctx, userID); err == nil {
		room, err := a.repo.GetRoom(ctx, existing.RoomID)
		if err != nil {
			return nil, fmt.Errorf("load existing room: %w", err)
		}
		return room, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing membership: %w", err)
	}

	room, err := a.repo.GetRoomByCode(ctx, code)
	if err != nil {
		// A miss and a lookup failure are indistinguishable to the user.
		return nil, ErrInvalidCode
	}

	count, err := a.repo.CountMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if count >= models.MaxRoomMembers {
		return nil, ErrRoomFull
	}

	// The check above races against concurrent joins; the schema's capacity
	// trigger and the per-user unique constraint are the final authority.
	// Any insert rejection here is definitive and must not be retried.
	if _, err := a.repo.CreateMembership(ctx, room.ID, userID); err != nil {
		if errors.Is(err, ErrConstraint) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	log.Info().
		Str("room_id", room.ID.String()).
		Str("user_id", userID.String()).
		Msg("user joined room")
	return room, nil
}

// RoomForUser resolves the caller's membership to their room, or
// ErrNotFound when unpaired.
func (a *App) RoomForUser(ctx context.Context, userID uuid.UUID) (*models.Room, error) {
	m, err := a.repo.GetMembershipByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.repo.GetRoom(ctx, m.RoomID)
}

// NormalizeCode trims and uppercases an invite code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

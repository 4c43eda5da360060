package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duopick/duopick/go/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrConstraint is returned when an insert is rejected by a unique or
// capacity constraint. The store is the final authority on both; callers
// must treat this as definitive, not retryable (except the invite code
// collision case, which generates a fresh code first).
var ErrConstraint = errors.New("constraint violation")

const uniqueViolation = "23505"

// raise_exception, thrown by the room capacity trigger.
const raiseException = "P0001"

// Repository implements room and membership data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rooms repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRoom inserts a room with the given invite code. A code collision
// surfaces as ErrConstraint.
func (r *Repository) CreateRoom(ctx context.Context, inviteCode string) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (id, invite_code) VALUES ($1, $2)
		 RETURNING id, invite_code, created_at`,
		uuid.New(), inviteCode,
	).Scan(&room.ID, &room.InviteCode, &room.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return nil, fmt.Errorf("create room: %w", ErrConstraint)
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	return &room, nil
}

// GetRoom retrieves a room by ID.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx,
		`SELECT id, invite_code, created_at FROM rooms WHERE id = $1`, id,
	).Scan(&room.ID, &room.InviteCode, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// GetRoomByCode retrieves a room by its invite code. The caller is expected
// to have normalized the code already.
func (r *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx,
		`SELECT id, invite_code, created_at FROM rooms WHERE invite_code = $1`, code,
	).Scan(&room.ID, &room.InviteCode, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}
	return &room, nil
}

// GetMembershipByUser returns the user's membership, if any. Unique per
// user by constraint, so at most one row exists.
func (r *Repository) GetMembershipByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := r.pool.QueryRow(ctx,
		`SELECT room_id, user_id, created_at FROM room_members WHERE user_id = $1`, userID,
	).Scan(&m.RoomID, &m.UserID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

// CountMembers returns the exact number of memberships for a room.
func (r *Repository) CountMembers(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_members WHERE room_id = $1`, roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// CreateMembership links a user to a room. Rejections from the per-user
// unique constraint or the capacity trigger surface as ErrConstraint.
func (r *Repository) CreateMembership(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := r.pool.QueryRow(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
		 RETURNING room_id, user_id, created_at`,
		roomID, userID,
	).Scan(&m.RoomID, &m.UserID, &m.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return nil, fmt.Errorf("create membership: %w", ErrConstraint)
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}
	return &m, nil
}

func isConstraintErr(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation || pgErr.Code == raiseException
}

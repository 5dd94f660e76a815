package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AldJayR/DormFinder/internal/booking/domain"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
)

const (
	pgLockNotAvailable   = "55P03"
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// PgxIface is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookingRepository struct {
	db PgxIface
}

var _ domain.BookingRepository = (*BookingRepository)(nil)

func NewBookingRepository(db PgxIface) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, dorm_id, move_in_date, move_out_date, status, created_at`

// Create inserts a booking inside one transaction that serializes all writers
// for the dorm on its dorms row. Locking the live bookings themselves is not
// enough: an empty dorm has no rows to lock, and under read committed a
// blocked reader keeps its statement snapshot from before the winner's commit.
// With the dorm row as the single lock point, the loser's live-bookings read
// runs as a later statement and sees whatever the winner committed. The lock
// also doubles as the dorm existence check.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer tx.Rollback(ctx)

	// Bounded lock wait; contention surfaces as ErrBusy, not a hang.
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return mapPgError(err)
	}

	var ownerID string
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM dorms WHERE id = $1 FOR UPDATE`, b.DormID).
		Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrDormNotFound
		}
		return mapPgError(err)
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE dorm_id = $1 AND status IN ('pending', 'confirmed')
	`, bookingColumns), b.DormID)
	if err != nil {
		return mapPgError(err)
	}

	existing, err := collectBookings(rows)
	if err != nil {
		return mapPgError(err)
	}

	for i := range existing {
		if existing[i].UserID == b.UserID && existing[i].MoveIn.Equal(b.MoveIn) {
			return apperrors.ErrDuplicateBooking
		}
		if existing[i].Overlaps(b.MoveIn, b.MoveOut) {
			return apperrors.ErrBookingConflict
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, user_id, dorm_id, move_in_date, move_out_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.UserID, b.DormID, b.MoveIn, b.MoveOut, b.Status, b.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}

	return mapPgError(tx.Commit(ctx))
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns), id)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// Transition re-reads the booking under an exclusive lock, validates the
// move against the status graph and applies it. The lock guarantees the
// graph check runs against the committed state, not a stale read.
func (r *BookingRepository) Transition(ctx context.Context, id string, target domain.Status) (*domain.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return nil, mapPgError(err)
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM bookings WHERE id = $1 FOR UPDATE
	`, bookingColumns), id)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, mapPgError(err)
	}

	if err := domain.CheckTransition(b.Status, target); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, target, id); err != nil {
		return nil, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}

	b.Status = target
	return b, nil
}

func (r *BookingRepository) LiveByDorm(ctx context.Context, dormID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bookings
		WHERE dorm_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY move_in_date
	`, bookingColumns), dormID)
	if err != nil {
		return nil, err
	}

	return collectBookings(rows)
}

func (r *BookingRepository) GetDormOwner(ctx context.Context, dormID string) (string, error) {
	var ownerID string
	err := r.db.QueryRow(ctx, `SELECT owner_id FROM dorms WHERE id = $1`, dormID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrDormNotFound
		}
		return "", fmt.Errorf("failed to get dorm owner: %w", err)
	}
	return ownerID, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.DormID, &b.MoveIn, &b.MoveOut, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.DormID, &b.MoveIn, &b.MoveOut, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// mapPgError translates driver-level conditions into the repository's typed
// errors: lock-wait timeout becomes the retryable ErrBusy, a unique-index hit
// on (user, dorm, move_in) becomes ErrDuplicateBooking, and a hit on the
// no_live_overlap exclusion constraint becomes ErrBookingConflict.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return apperrors.ErrBusy
		case pgUniqueViolation:
			return apperrors.ErrDuplicateBooking
		case pgExclusionViolation:
			return apperrors.ErrBookingConflict
		}
	}
	return err
}

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AldJayR/DormFinder/internal/booking/domain"
	repo "github.com/AldJayR/DormFinder/internal/booking/repository/postgres"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
)

var bookingColumns = []string{
	"id", "user_id", "dorm_id", "move_in_date", "move_out_date", "status", "created_at",
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newBooking() *domain.Booking {
	return &domain.Booking{
		ID:        "booking-1",
		UserID:    "user-1",
		DormID:    "dorm-42",
		MoveIn:    date(2025, 6, 1),
		MoveOut:   date(2025, 6, 10),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}
}

// expectDormLock scripts the start of a Create transaction. pgxmock matches
// expectations in order, so these tests also pin the dorm-row lock to run
// before the live-bookings read.
func expectDormLock(mock pgxmock.PgxPoolIface, dormID string) {
	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").
		WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectQuery("SELECT owner_id FROM dorms WHERE id = (.+) FOR UPDATE").
		WithArgs(dormID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("owner-7"))
}

func expectLockedLiveQuery(mock pgxmock.PgxPoolIface, dormID string, rows *pgxmock.Rows) {
	expectDormLock(mock, dormID)
	mock.ExpectQuery("SELECT id, user_id, dorm_id, move_in_date, move_out_date, status, created_at FROM bookings").
		WithArgs(dormID).
		WillReturnRows(rows)
}

// TestBookingRepository_Create covers the locked conflict check and insert.
func TestBookingRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("no live bookings, insert succeeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		expectLockedLiveQuery(mock, b.DormID, pgxmock.NewRows(bookingColumns))
		mock.ExpectExec("INSERT INTO bookings").
			WithArgs(b.ID, b.UserID, b.DormID, b.MoveIn, b.MoveOut, b.Status, b.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectRollback() // deferred rollback after commit is a no-op

		require.NoError(t, r.Create(ctx, b))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overlapping live booking returns conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()
		b.UserID = "user-2"
		b.MoveIn = date(2025, 6, 5)
		b.MoveOut = date(2025, 6, 15)

		existing := pgxmock.NewRows(bookingColumns).
			AddRow("booking-0", "user-1", b.DormID, date(2025, 6, 1), date(2025, 6, 10),
				domain.StatusConfirmed, time.Now())
		expectLockedLiveQuery(mock, b.DormID, existing)
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrBookingConflict)
	})

	t.Run("same actor same move-in returns duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		existing := pgxmock.NewRows(bookingColumns).
			AddRow("booking-0", b.UserID, b.DormID, b.MoveIn, b.MoveOut,
				domain.StatusPending, time.Now())
		expectLockedLiveQuery(mock, b.DormID, existing)
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrDuplicateBooking)
	})

	t.Run("non-live statuses do not block the range", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		// The locked read only returns pending/confirmed rows; a canceled
		// booking for the same range never shows up.
		expectLockedLiveQuery(mock, b.DormID, pgxmock.NewRows(bookingColumns))
		mock.ExpectExec("INSERT INTO bookings").
			WithArgs(b.ID, b.UserID, b.DormID, b.MoveIn, b.MoveOut, b.Status, b.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		require.NoError(t, r.Create(ctx, b))
	})

	t.Run("unknown dorm fails inside the transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()
		b.DormID = "missing"

		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectQuery("SELECT owner_id FROM dorms").
			WithArgs(b.DormID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrDormNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dorm lock timeout surfaces as busy", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectQuery("SELECT owner_id FROM dorms").
			WithArgs(b.DormID).
			WillReturnError(&pgconn.PgError{Code: "55P03"})
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrBusy)
	})

	t.Run("exclusion constraint hit maps to conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		expectLockedLiveQuery(mock, b.DormID, pgxmock.NewRows(bookingColumns))
		mock.ExpectExec("INSERT INTO bookings").
			WithArgs(b.ID, b.UserID, b.DormID, b.MoveIn, b.MoveOut, b.Status, b.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23P01"})
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrBookingConflict)
	})

	t.Run("unique index violation maps to duplicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)
		b := newBooking()

		expectLockedLiveQuery(mock, b.DormID, pgxmock.NewRows(bookingColumns))
		mock.ExpectExec("INSERT INTO bookings").
			WithArgs(b.ID, b.UserID, b.DormID, b.MoveIn, b.MoveOut, b.Status, b.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err = r.Create(ctx, b)
		assert.ErrorIs(t, err, apperrors.ErrDuplicateBooking)
	})
}

// TestBookingRepository_Transition covers the locked status change.
func TestBookingRepository_Transition(t *testing.T) {
	ctx := context.Background()

	expectLockedRead := func(mock pgxmock.PgxPoolIface, id string, status domain.Status) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectQuery("SELECT id, user_id, dorm_id, move_in_date, move_out_date, status, created_at FROM bookings WHERE id").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(bookingColumns).
				AddRow(id, "user-1", "dorm-42", date(2025, 6, 1), date(2025, 6, 10),
					status, time.Now()))
	}

	t.Run("pending to confirmed succeeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)

		expectLockedRead(mock, "booking-1", domain.StatusPending)
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(domain.StatusConfirmed, "booking-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		b, err := r.Transition(ctx, "booking-1", domain.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, b.Status)
	})

	t.Run("completed to confirmed fails with invalid transition", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)

		expectLockedRead(mock, "booking-1", domain.StatusCompleted)
		mock.ExpectRollback()

		_, err = r.Transition(ctx, "booking-1", domain.StatusConfirmed)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("canceled is terminal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)

		expectLockedRead(mock, "booking-1", domain.StatusCanceled)
		mock.ExpectRollback()

		_, err = r.Transition(ctx, "booking-1", domain.StatusPending)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("missing booking", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		r := repo.NewBookingRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").
			WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err = r.Transition(ctx, "missing", domain.StatusConfirmed)
		assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
	})
}

func TestBookingRepository_LiveByDorm(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBookingRepository(mock)
	ctx := context.Background()

	t.Run("returns live bookings in move-in order", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("dorm-42").
			WillReturnRows(pgxmock.NewRows(bookingColumns).
				AddRow("b1", "u1", "dorm-42", date(2025, 6, 1), date(2025, 6, 10),
					domain.StatusPending, time.Now()).
				AddRow("b2", "u2", "dorm-42", date(2025, 7, 1), date(2025, 7, 15),
					domain.StatusConfirmed, time.Now()))

		bookings, err := r.LiveByDorm(ctx, "dorm-42")
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, "b1", bookings[0].ID)
		assert.Equal(t, "b2", bookings[1].ID)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("dorm-42").
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.LiveByDorm(ctx, "dorm-42")
		assert.Error(t, err)
	})
}

func TestBookingRepository_GetDormOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBookingRepository(mock)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT owner_id FROM dorms").
			WithArgs("dorm-42").
			WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("owner-7"))

		ownerID, err := r.GetDormOwner(ctx, "dorm-42")
		require.NoError(t, err)
		assert.Equal(t, "owner-7", ownerID)
	})

	t.Run("unknown dorm", func(t *testing.T) {
		mock.ExpectQuery("SELECT owner_id FROM dorms").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := r.GetDormOwner(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrDormNotFound)
	})
}

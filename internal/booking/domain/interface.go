package domain

import "context"

// BookingRepository is the locked read/write surface over booking rows.
//
// Create and Transition each run inside a single transaction that takes
// exclusive row locks on the dorm's live bookings before deciding, so two
// concurrent writers cannot both pass the same check. Lock-wait timeouts
// surface as ErrBusy.
type BookingRepository interface {
	// Create inserts the booking unless a live booking overlaps its date
	// range (ErrBookingConflict) or the actor already booked this dorm
	// and move-in date (ErrDuplicateBooking).
	Create(ctx context.Context, b *Booking) error

	GetByID(ctx context.Context, id string) (*Booking, error)

	// Transition re-reads the booking under lock, validates the status
	// graph and applies the change. Returns *InvalidTransitionError on a
	// graph violation, ErrBookingNotFound if the row is gone.
	Transition(ctx context.Context, id string, target Status) (*Booking, error)

	// LiveByDorm returns the dorm's pending and confirmed bookings,
	// ordered by move-in date.
	LiveByDorm(ctx context.Context, dormID string) ([]Booking, error)

	// GetDormOwner resolves the owning user of a dorm.
	GetDormOwner(ctx context.Context, dormID string) (string, error)
}

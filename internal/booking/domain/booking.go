package domain

import (
	"time"

	apperrors "github.com/AldJayR/DormFinder/internal/errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

// statusTransitions is the fixed directed graph of allowed status changes.
// Completed and canceled are terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled},
	StatusCompleted: {},
	StatusCanceled:  {},
}

// ValidStatus reports whether s is one of the four known states.
func ValidStatus(s Status) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CheckTransition validates from→to against the transition graph.
func CheckTransition(from, to Status) error {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &apperrors.InvalidTransitionError{From: string(from), To: string(to)}
}

// Live reports whether a booking in this status counts toward overlap checks.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking rows are never hard-deleted; canceled and completed are soft
// terminal states.
type Booking struct {
	ID        string
	UserID    string
	DormID    string
	MoveIn    time.Time
	MoveOut   time.Time
	Status    Status
	CreatedAt time.Time
}

// Overlaps tests the half-open [MoveIn, MoveOut) interval against another
// range.
func (b *Booking) Overlaps(moveIn, moveOut time.Time) bool {
	return b.MoveIn.Before(moveOut) && b.MoveOut.After(moveIn)
}

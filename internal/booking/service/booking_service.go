package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AldJayR/DormFinder/internal/auth/store"
	"github.com/AldJayR/DormFinder/internal/booking/domain"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

//go:generate mockgen -destination=../../mocks/mock_booking_repository.go -package=mocks github.com/AldJayR/DormFinder/internal/booking/domain BookingRepository

const (
	dateLayout      = "2006-01-02"
	availabilityTTL = 5 * time.Minute
)

// Actor identifies who is performing a booking operation.
type Actor struct {
	ID   string
	Role string
}

// DateRange is one occupied interval in a dorm's availability snapshot.
type DateRange struct {
	MoveIn  string `json:"move_in"`
	MoveOut string `json:"move_out"`
}

// BookingService coordinates booking submissions and status changes on top of
// the row-locking repository, and keeps the per-dorm availability snapshot in
// the cache. The cache is best-effort: a cache failure never fails the
// booking operation.
type BookingService struct {
	repo   domain.BookingRepository
	cache  store.AvailabilityCache
	logger *zap.Logger
	now    func() time.Time
}

func NewBookingService(repo domain.BookingRepository, cache store.AvailabilityCache, logger *zap.Logger) *BookingService {
	return &BookingService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Submit validates the requested date range and hands the booking to the
// repository's locked conflict check, which also verifies the dorm exists.
// On success the dorm's availability snapshot is recomputed.
func (s *BookingService) Submit(ctx context.Context, actorID, dormID string, moveIn, moveOut time.Time) (*domain.Booking, error) {
	today := s.now().Truncate(24 * time.Hour)
	if !moveIn.After(today) {
		return nil, apperrors.ErrMoveInNotFuture
	}
	if !moveOut.After(moveIn) {
		return nil, apperrors.ErrInvalidDateRange
	}

	b := &domain.Booking{
		ID:        uuid.New().String(),
		UserID:    actorID,
		DormID:    dormID,
		MoveIn:    moveIn,
		MoveOut:   moveOut,
		Status:    domain.StatusPending,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.refreshAvailability(ctx, dormID)
	return b, nil
}

// Transition applies a status change after checking who may request it:
// the booking's owner may cancel, the dorm's owner may confirm, complete or
// cancel, and admins may do anything. The repository enforces the status
// graph itself under the row lock.
func (s *BookingService) Transition(ctx context.Context, actor Actor, bookingID string, target domain.Status) (*domain.Booking, error) {
	if !domain.ValidStatus(target) {
		return nil, &apperrors.InvalidTransitionError{To: string(target)}
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, b, target); err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, bookingID, target)
	if err != nil {
		return nil, err
	}

	s.refreshAvailability(ctx, updated.DormID)
	return updated, nil
}

func (s *BookingService) authorize(ctx context.Context, actor Actor, b *domain.Booking, target domain.Status) error {
	if actor.Role == constant.RoleAdmin {
		return nil
	}

	if actor.ID == b.UserID && target == domain.StatusCanceled {
		return nil
	}

	ownerID, err := s.repo.GetDormOwner(ctx, b.DormID)
	if err != nil {
		return err
	}
	if actor.ID == ownerID {
		return nil
	}

	return apperrors.ErrPermissionDenied
}

// Availability returns the dorm's occupied date ranges, serving from the
// cache when the snapshot is fresh.
func (s *BookingService) Availability(ctx context.Context, dormID string) ([]DateRange, error) {
	if snapshot, err := s.cache.Get(dormID); err != nil {
		s.logger.Warn("availability cache read failed", zap.String("dorm", dormID), zap.Error(err))
	} else if snapshot != nil {
		var ranges []DateRange
		if err := json.Unmarshal(snapshot, &ranges); err == nil {
			return ranges, nil
		}
		s.logger.Warn("dropping undecodable availability snapshot", zap.String("dorm", dormID))
	}

	if _, err := s.repo.GetDormOwner(ctx, dormID); err != nil {
		return nil, err
	}

	return s.computeAvailability(ctx, dormID)
}

// computeAvailability derives the snapshot from the live bookings and writes
// it back to the cache.
func (s *BookingService) computeAvailability(ctx context.Context, dormID string) ([]DateRange, error) {
	live, err := s.repo.LiveByDorm(ctx, dormID)
	if err != nil {
		return nil, err
	}

	ranges := make([]DateRange, 0, len(live))
	for i := range live {
		ranges = append(ranges, DateRange{
			MoveIn:  live[i].MoveIn.Format(dateLayout),
			MoveOut: live[i].MoveOut.Format(dateLayout),
		})
	}

	snapshot, err := json.Marshal(ranges)
	if err != nil {
		return ranges, nil
	}
	if err := s.cache.Put(dormID, snapshot, availabilityTTL); err != nil {
		s.logger.Warn("availability cache write failed", zap.String("dorm", dormID), zap.Error(err))
	}

	return ranges, nil
}

func (s *BookingService) refreshAvailability(ctx context.Context, dormID string) {
	if err := s.cache.Invalidate(dormID); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("dorm", dormID), zap.Error(err))
	}
	if _, err := s.computeAvailability(ctx, dormID); err != nil {
		s.logger.Warn("availability recompute failed", zap.String("dorm", dormID), zap.Error(err))
	}
}

package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	authhandler "github.com/AldJayR/DormFinder/internal/auth/handler"
	"github.com/AldJayR/DormFinder/internal/booking/domain"
	"github.com/AldJayR/DormFinder/internal/booking/dto"
	"github.com/AldJayR/DormFinder/internal/booking/service"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	bookings *service.BookingService
	validate *validator.Validate
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		validate: validator.New(),
	}
}

// Create submits a booking for the authenticated user. 409 is reserved for
// date conflicts; every validation failure is a 400.
func (h *BookingHandler) Create(c *fiber.Ctx) error {
	identity := authhandler.IdentityFromCtx(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var input dto.CreateBookingInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	moveIn, err := time.Parse(dateLayout, input.MoveIn)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid move_in date",
		})
	}
	moveOut, err := time.Parse(dateLayout, input.MoveOut)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid move_out date",
		})
	}

	booking, err := h.bookings.Submit(c.UserContext(), identity.User.ID, input.DormID, moveIn, moveOut)
	if err != nil {
		return bookingFailure(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     booking.ID,
		"status": booking.Status,
	})
}

// UpdateStatus moves a booking through the status graph on behalf of the
// authenticated actor.
func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	identity := authhandler.IdentityFromCtx(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var input dto.TransitionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	actor := service.Actor{ID: identity.User.ID, Role: identity.User.Role}
	booking, err := h.bookings.Transition(c.UserContext(), actor, c.Params("id"), domain.Status(input.Status))
	if err != nil {
		return bookingFailure(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.BookingOutput{
		ID:      booking.ID,
		DormID:  booking.DormID,
		MoveIn:  booking.MoveIn.Format(dateLayout),
		MoveOut: booking.MoveOut.Format(dateLayout),
		Status:  string(booking.Status),
	})
}

// Availability serves the dorm's cached availability snapshot.
func (h *BookingHandler) Availability(c *fiber.Ctx) error {
	ranges, err := h.bookings.Availability(c.UserContext(), c.Params("id"))
	if err != nil {
		return bookingFailure(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"dorm_id": c.Params("id"),
		"booked":  ranges,
	})
}

func bookingFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrBookingConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicateBooking),
		errors.Is(err, apperrors.ErrMoveInNotFuture),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidTransition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperrors.ErrBookingNotFound), errors.Is(err, apperrors.ErrDormNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, apperrors.ErrBusy):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

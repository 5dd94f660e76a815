package dto

// Dates travel as "2006-01-02" strings; the handler parses and the service
// validates the range.
type CreateBookingInput struct {
	DormID  string `json:"dorm_id" validate:"required"`
	MoveIn  string `json:"move_in" validate:"required"`
	MoveOut string `json:"move_out" validate:"required"`
}

type TransitionInput struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed canceled completed"`
}

type BookingOutput struct {
	ID      string `json:"id"`
	DormID  string `json:"dorm_id"`
	MoveIn  string `json:"move_in"`
	MoveOut string `json:"move_out"`
	Status  string `json:"status"`
}

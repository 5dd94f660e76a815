package dto

type RegisterInput struct {
	Username       string `json:"username" validate:"required,min=3,max=64"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Role           string `json:"role" validate:"omitempty,oneof=student dorm_owner"`
	SchoolIDNumber string `json:"school_id_number"`
}

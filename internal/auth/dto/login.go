package dto

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`

	// Request context, captured by the handler, never client-supplied.
	IPAddress      string `json:"-"`
	UserAgent      string `json:"-"`
	AcceptLanguage string `json:"-"`
}

package dto

// RefreshInput carries the raw refresh token read from its cookie plus the
// request context the new fingerprint is checked against.
type RefreshInput struct {
	RefreshToken   string `json:"-"`
	IPAddress      string `json:"-"`
	UserAgent      string `json:"-"`
	AcceptLanguage string `json:"-"`
}

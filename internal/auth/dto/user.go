package dto

// ProfileOutput is the only user shape that ever reaches a response body.
// Tokens travel exclusively in cookies.
type ProfileOutput struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// TokenPair holds freshly issued tokens on their way to the cookie writer.
type TokenPair struct {
	AccessToken      string `json:"-"`
	RefreshToken     string `json:"-"`
	AccessExpirySec  int    `json:"-"`
	RefreshExpirySec int    `json:"-"`
}

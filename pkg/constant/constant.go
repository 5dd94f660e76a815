package constant

import "time"

// Roles mirror the values stored in the users table.
const (
	RoleStudent   = "student"
	RoleDormOwner = "dorm_owner"
	RoleAdmin     = "admin"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Cookie and header names used by the session handlers.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	CSRFCookie         = "csrf_token"
	CSRFHeader         = "X-CSRF-Token"
)

const (
	// MaxTokenBytes bounds raw token size before any parsing happens.
	MaxTokenBytes = 4096

	// MaxRefreshUses caps how many times a single refresh token lineage
	// may be redeemed.
	MaxRefreshUses = 3

	// MaxFailedAttempts within FailureWindow trips the lockout.
	MaxFailedAttempts = 5
	FailureWindow     = 15 * time.Minute

	// MaxClientIPLen is the longest address accepted from a client
	// (IPv6 upper bound).
	MaxClientIPLen = 45
)

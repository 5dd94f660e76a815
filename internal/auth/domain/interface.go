package domain

import "context"

// UserRepository is the user directory the session layer consults. A nil user
// with a nil error means "not found".
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	RecordLoginAttempt(ctx context.Context, username, ip string, success bool) error
	UpsertTrustedDevice(ctx context.Context, userID, fingerprint, userAgent, ip string) error
}

package domain

import "time"

type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           string
	SchoolIDNumber string
	IsActive       bool
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LoginAttempt struct {
	ID          string
	Username    string
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}

type TrustedDevice struct {
	ID                string
	UserID            string
	DeviceFingerprint string
	UserAgent         string
	IPAddress         string
	LastSeen          time.Time
	CreatedAt         time.Time
}

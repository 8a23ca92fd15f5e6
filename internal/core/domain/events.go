package domain

import "time"

// LoginSucceededEvent represents the payload for lms.auth.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID   string
	AccountID string
	Username  string
	LoggedAt  time.Time
	ExpiresAt time.Time
}

// AccountLockedEvent represents the payload for lms.auth.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	AccountID      string
	Username       string
	FailedAttempts int
	LockedAt       time.Time
	LockedUntil    time.Time
}

// SessionsRevokedEvent represents the payload for lms.auth.sessions.revoked messages.
type SessionsRevokedEvent struct {
	EventID   string
	AccountID string
	Count     int
	Reason    string
	RevokedAt time.Time
}

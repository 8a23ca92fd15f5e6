package domain

import "time"

// Session is the durable record of one authenticated client context.
type Session struct {
	Token          string
	AccountID      string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	LastAccessedAt *time.Time
}

// IsExpired reports whether the session lifetime has elapsed at the supplied moment.
func (s Session) IsExpired(at time.Time) bool {
	return !at.Before(s.ExpiresAt)
}

// Cached projects the session into its cache representation.
func (s Session) Cached() CachedSession {
	return CachedSession{AccountID: s.AccountID, ExpiresAt: s.ExpiresAt}
}

// CachedSession is the volatile projection of a session kept under session:<token>.
type CachedSession struct {
	AccountID string    `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the cached expiry has elapsed at the supplied moment.
func (c CachedSession) IsExpired(at time.Time) bool {
	return !at.Before(c.ExpiresAt)
}

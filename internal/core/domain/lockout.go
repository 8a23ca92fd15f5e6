package domain

import "time"

// LockoutState is the brute-force bookkeeping embedded in an account.
type LockoutState struct {
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// LockoutPolicy decides when repeated login failures lock an account.
//
// The account is Open while LockedUntil is nil or not after now, and Locked(until) otherwise.
// Reaching Threshold consecutive failures moves it to Locked(now + Duration).
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// IsLocked reports whether login attempts must be rejected at the supplied instant.
func (p LockoutPolicy) IsLocked(state LockoutState, now time.Time) bool {
	if state.LockedUntil == nil {
		return false
	}
	return now.Before(*state.LockedUntil)
}

// RegisterFailure applies one failed attempt and reports whether it triggered a new lock.
// The count only resets on a successful login, so a failure after a lapsed lock relocks at once.
func (p LockoutPolicy) RegisterFailure(state LockoutState, now time.Time) (LockoutState, bool) {
	next := LockoutState{
		FailedLoginAttempts: state.FailedLoginAttempts + 1,
		LockedUntil:         state.LockedUntil,
	}
	if p.Threshold > 0 && next.FailedLoginAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
		return next, true
	}

	return next, false
}

// Reset returns the state recorded after a successful login.
func (p LockoutPolicy) Reset() LockoutState {
	return LockoutState{}
}

package usecase

import "errors"

var (
	// ErrInvalidCredentials covers unknown usernames, wrong passwords and locked accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, malformed, expired or revoked session token.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden indicates a valid session lacking the required permission.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrConflict indicates a uniqueness violation such as a duplicate username.
	ErrConflict = errors.New("resource already exists")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)

const tracerName = "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"

type noopMetrics struct{}

func (noopMetrics) ObserveLogin(string)                {}
func (noopMetrics) ObserveSessionValidation(string)    {}
func (noopMetrics) ObserveSessionIssued()              {}
func (noopMetrics) ObserveSessionsRevoked(string, int) {}
func (noopMetrics) ObserveCacheError(string)           {}

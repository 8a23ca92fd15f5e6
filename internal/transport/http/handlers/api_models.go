package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/security"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request trace ID.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{Message: message, TraceID: middleware.GetTraceID(c)}
}

// Envelope wraps successful responses.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func success(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// UserResponse is the public view of an account or principal.
type UserResponse struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Phone       *string         `json:"phone,omitempty"`
	UserType    string          `json:"userType"`
	Permissions map[string]bool `json:"permissions"`
	Active      *bool           `json:"active,omitempty"`
	LastLogin   *time.Time      `json:"lastLogin,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func newPrincipalResponse(p domain.Principal) UserResponse {
	return UserResponse{
		ID:          p.AccountID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.Phone,
		UserType:    p.UserType,
		Permissions: p.Permissions,
		LastLogin:   p.LastLogin,
		CreatedAt:   p.CreatedAt,
	}
}

func newAccountResponse(a domain.Account) UserResponse {
	resp := newPrincipalResponse(a.Principal())
	active := a.Active
	resp.Active = &active
	return resp
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginData is returned after a successful login.
type LoginData struct {
	User         UserResponse `json:"user"`
	SessionToken string       `json:"sessionToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// CreateAccountRequest is the body of POST /api/users.
type CreateAccountRequest struct {
	Username  string  `json:"username" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName" binding:"required"`
	Phone     *string `json:"phone"`
	UserType  string  `json:"userType" binding:"required"`
}

// SessionResponse describes a session without exposing its token.
type SessionResponse struct {
	Fingerprint    string     `json:"fingerprint"`
	IssuedAt       time.Time  `json:"issuedAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

func newSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		Fingerprint:    security.Fingerprint(s.Token),
		IssuedAt:       s.IssuedAt,
		ExpiresAt:      s.ExpiresAt,
		LastAccessedAt: s.LastAccessedAt,
	}
}

// UserTypeResponse describes a role accounts can be created with.
type UserTypeResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Permissions map[string]bool `json:"permissions"`
}

// UserTypesData is returned by GET /api/auth/user-types.
type UserTypesData struct {
	UserTypes []UserTypeResponse `json:"userTypes"`
}

func newUserTypeResponse(t domain.UserType) UserTypeResponse {
	return UserTypeResponse{ID: t.ID, Name: t.Name, Description: t.Description, Permissions: t.Permissions}
}

// RevokeSessionsResponse reports how many sessions were revoked.
type RevokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

const (
	// SessionTokenHeader carries the session token for clients that cannot set Authorization.
	SessionTokenHeader = "X-Session-Token"
	// SessionCookieName is the cookie set on login.
	SessionCookieName = "sessionToken"

	principalKey = "principal"
)

// ErrorResponse mirrors handlers.ErrorResponse so middleware can abort with the same shape.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{Message: message, TraceID: GetTraceID(c)}
}

// Authenticator resolves a session token into a principal.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, token string) (*domain.Principal, error)
}

// SessionToken extracts the session token in precedence order: Bearer authorization,
// X-Session-Token header, then the sessionToken cookie.
func SessionToken(c *gin.Context) string {
	if scheme, credentials, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token := strings.TrimSpace(credentials); token != "" {
			return token
		}
	}

	if token := strings.TrimSpace(c.GetHeader(SessionTokenHeader)); token != "" {
		return token
	}

	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

// RequireAuth rejects requests without a valid session and stores the principal for downstream handlers.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
			return
		}

		principal, err := auth.AuthenticateRequest(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid or expired session"))
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			return
		}

		c.Set(principalKey, principal)
		c.Set(AccountIDKey, principal.AccountID)
		GetRequestContext(c).AccountID = principal.AccountID

		c.Next()
	}
}

// RequireAdmin allows only principals of the admin user type. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return requirePrincipal(func(p *domain.Principal) bool { return p.IsAdmin() })
}

// RequirePermission allows principals holding the capability. It must run after RequireAuth.
func RequirePermission(capability string) gin.HandlerFunc {
	return requirePrincipal(func(p *domain.Principal) bool { return p.HasPermission(capability) })
}

func requirePrincipal(allowed func(*domain.Principal) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
			return
		}
		if !allowed(principal) {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by RequireAuth.
func GetPrincipal(c *gin.Context) (*domain.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}

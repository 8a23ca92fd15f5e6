package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

// LoginService is the slice of the auth usecase the handler needs.
type LoginService interface {
	Login(ctx context.Context, username, password string) (*usecase.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler exposes login, logout and profile endpoints.
type AuthHandler struct {
	auth          LoginService
	secureCookies bool
	now           func() time.Time
}

// NewAuthHandler constructs AuthHandler. secureCookies marks the session cookie Secure.
func NewAuthHandler(auth LoginService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies, now: time.Now}
}

// RegisterRoutes binds the auth routes. requireAuth guards the profile endpoint.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)
	r.GET("/me", requireAuth, h.me)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "login failed")
		return
	}

	maxAge := int(result.ExpiresAt.Sub(h.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, result.Token, maxAge, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, success("login successful", LoginData{
		User:         newPrincipalResponse(result.Principal),
		SessionToken: result.Token,
		ExpiresAt:    result.ExpiresAt,
	}))
}

func (h *AuthHandler) logout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		_ = h.auth.Logout(c.Request.Context(), token)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, success("logout successful", nil))
}

func (h *AuthHandler) me(c *gin.Context) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, success("", newPrincipalResponse(*principal)))
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

// AccountAdmin is the slice of the account usecase used by administrators.
type AccountAdmin interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput, createdBy *string) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	SetActive(ctx context.Context, id string, active bool) error
	DeleteAccount(ctx context.Context, id string) error
	ListUserTypes(ctx context.Context) ([]domain.UserType, error)
}

// SessionAdmin lists and revokes the sessions of an account.
type SessionAdmin interface {
	ListSessions(ctx context.Context, accountID string) ([]domain.Session, error)
	RevokeAll(ctx context.Context, accountID string) (int, error)
}

// AccountHandler exposes administrative account endpoints.
type AccountHandler struct {
	accounts AccountAdmin
	sessions SessionAdmin
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts AccountAdmin, sessions SessionAdmin) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions}
}

// RegisterRoutes binds the account routes; callers apply authentication and authorization to r.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.GET("/:id", h.get)
	r.PATCH("/:id/activate", h.setActive(true))
	r.PATCH("/:id/deactivate", h.setActive(false))
	r.DELETE("/:id", h.delete)
	r.GET("/:id/sessions", h.listSessions)
	r.DELETE("/:id/sessions", h.revokeSessions)
}

func (h *AccountHandler) create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username, password, firstName, lastName and userType are required"))
		return
	}

	var createdBy *string
	if principal, exists := middleware.GetPrincipal(c); exists {
		createdBy = &principal.AccountID
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), usecase.CreateAccountInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		UserType:  req.UserType,
	}, createdBy)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, success("user created", newAccountResponse(*account)))
}

func (h *AccountHandler) get(c *gin.Context) {
	account, err := h.accounts.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to load user")
		return
	}

	c.JSON(http.StatusOK, success("", newAccountResponse(*account)))
}

func (h *AccountHandler) setActive(active bool) gin.HandlerFunc {
	message := "user deactivated"
	if active {
		message = "user activated"
	}

	return func(c *gin.Context) {
		if err := h.accounts.SetActive(c.Request.Context(), c.Param("id"), active); err != nil {
			RespondWithMappedError(c, err, []ErrorCase{
				{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "user not found"},
			}, http.StatusInternalServerError, "failed to update user")
			return
		}
		c.JSON(http.StatusOK, success(message, nil))
	}
}

func (h *AccountHandler) delete(c *gin.Context) {
	id := c.Param("id")
	if principal, exists := middleware.GetPrincipal(c); exists && principal.AccountID == id {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "administrators cannot delete their own account"))
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to delete user")
		return
	}
	c.JSON(http.StatusOK, success("user deleted", nil))
}

func (h *AccountHandler) listSessions(c *gin.Context) {
	sessions, err := h.sessions.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, newSessionResponse(session))
	}
	c.JSON(http.StatusOK, success("", resp))
}

func (h *AccountHandler) revokeSessions(c *gin.Context) {
	revoked, err := h.sessions.RevokeAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to revoke sessions")
		return
	}
	c.JSON(http.StatusOK, success("sessions revoked", RevokeSessionsResponse{Revoked: revoked}))
}

// ListUserTypes serves the roles an administrator can assign. Callers guard it with RequireAdmin.
func (h *AccountHandler) ListUserTypes(c *gin.Context) {
	userTypes, err := h.accounts.ListUserTypes(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load user types")
		return
	}

	resp := make([]UserTypeResponse, 0, len(userTypes))
	for _, userType := range userTypes {
		resp = append(resp, newUserTypeResponse(userType))
	}
	c.JSON(http.StatusOK, success("", UserTypesData{UserTypes: resp}))
}

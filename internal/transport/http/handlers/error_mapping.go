package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/transport/http/middleware"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// taxonomyCases cover the usecase errors shared by every endpoint.
var taxonomyCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password"},
	{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "authentication required"},
	{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
	{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Message: "resource not found"},
	{Err: usecase.ErrConflict, Status: http.StatusConflict, Message: "resource already exists"},
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "validation failed"},
}

// RespondWithMappedError resolves err against cases, then the shared taxonomy, and falls back to a
// generic response. Server-side failures are attached to the gin context and reported to Sentry.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, group := range [][]ErrorCase{cases, taxonomyCases} {
		for _, cs := range group {
			if cs.Err != nil && errors.Is(err, cs.Err) {
				message := cs.Message
				if errors.Is(err, usecase.ErrValidation) || errors.Is(err, usecase.ErrConflict) {
					message = err.Error()
				}
				c.JSON(cs.Status, NewErrorResponse(c, message))
				return
			}
		}
	}

	if fallbackStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
		reportError(c, err)
	}
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func reportError(c *gin.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("trace_id", middleware.GetTraceID(c))
		scope.SetTag("route", c.FullPath())
		if accountID := c.GetString(middleware.AccountIDKey); accountID != "" {
			scope.SetUser(sentry.User{ID: accountID})
		}
		sentry.CaptureException(err)
	})
}

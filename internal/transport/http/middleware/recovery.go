package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery converts panics into 500 responses and reports them to Sentry.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		traceID := GetTraceID(c)

		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("trace_id", traceID)
			scope.SetTag("route", c.FullPath())
			scope.SetExtra("panic", fmt.Sprint(recovered))
			scope.SetExtra("stack", string(debug.Stack()))
			sentry.CaptureMessage("panic in request")
		})

		log.Error("panic recovered",
			zap.String("trace_id", traceID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)

		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "internal server error"))
	})
}

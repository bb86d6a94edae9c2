package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500. Slack treats a 5xx on
// /slack/events as a failed delivery and retries it, so the event is not lost.
// A panic caused by the client hanging up is logged but gets no response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			ctx := c.Request.Context()
			if clientGone(rec) {
				slog.WarnContext(ctx, "client disconnected mid-response",
					"path", c.Request.URL.Path,
					"error", rec)
				c.Abort()
				return
			}

			slog.ErrorContext(ctx, "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"slack_retry", c.GetHeader("X-Slack-Retry-Num"),
				"stack", string(debug.Stack()))

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}

func clientGone(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, http.ErrAbortHandler)
}

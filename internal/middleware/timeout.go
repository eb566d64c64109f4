package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doitto/webapp/internal/pkg"
)

// Timeout returns a gin middleware that bounds the request context by d.
// Handlers and the store observe the deadline through the context; if it
// expires before anything was written the client gets 503.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			pkg.Abort(c, http.StatusServiceUnavailable, "request timed out")
		}
	}
}

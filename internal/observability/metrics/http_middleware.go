package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests no route handled. Raw paths carry account
// keys and would grow the label set without bound.
const unmatchedRoute = "unmatched"

// GinMiddleware records latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = unmatchedRoute
			}
			ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}()
		c.Next()
	}
}

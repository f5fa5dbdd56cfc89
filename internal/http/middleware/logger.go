package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger emits one line per request. Health probes are skipped so balancer
// polling does not drown the log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		log.Printf("[HTTP] request_id=%s %s %s status=%d took=%s errors=%d",
			GetRequestID(c),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Millisecond),
			len(c.Errors),
		)
	}
}

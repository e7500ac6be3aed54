package server

import (
	"auction-engine/utils"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLoggerMiddleware logs incoming requests with timing. Probe and
// scrape endpoints log at debug so they do not drown the request log.
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"route":   c.FullPath(),
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	switch c.Request.URL.Path {
	case "/healthz", "/metrics":
		utils.Debug("HTTP Request", fields)
	default:
		utils.Info("HTTP Request", fields)
	}
}

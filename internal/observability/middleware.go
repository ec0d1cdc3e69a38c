package observability

import (
	"strings"
	"time"

	"github.com/danmuck/nslisting/internal/protocol/protocols"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per nsd request with the namespace path it
// touched and the wire protocol it spoke.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("target", requestTarget(c)).
			Str("proto", requestProtocol(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP()).
			Msg("nsd request")
	}
}

// requestTarget is the namespace path a request names, with the entry
// name appended for deletes.
func requestTarget(c *gin.Context) string {
	target := c.Query("path")
	if target == "" {
		target = c.Query("ns")
	}
	if name := c.Query("name"); name != "" {
		target = strings.TrimRight(target, "/") + "/" + name
	}
	return target
}

// requestProtocol names the codec of the request body, else the one the
// client asked for, else json.
func requestProtocol(c *gin.Context) string {
	if f, ok := protocols.ForContentType(c.ContentType()); ok {
		return f.Name()
	}
	for _, part := range strings.Split(c.GetHeader("Accept"), ",") {
		if f, ok := protocols.ForContentType(strings.TrimSpace(part)); ok {
			return f.Name()
		}
	}
	return "json"
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		RecordHTTPRequest(node, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

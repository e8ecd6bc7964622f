package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biasclean/internal"
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID and logs method, path, status and latency
func RequestLogger(logger *internal.Logger) gin.HandlerFunc {
	logger = logger.With("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("%s %s %d %s [%s] %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start), id, c.Errors.String())
		case status >= http.StatusBadRequest:
			logger.Warn("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path, status, time.Since(start), id)
		default:
			logger.Debug("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path, status, time.Since(start), id)
		}
	}
}

// BodyLimit caps request bodies at maxBytes
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// Package middleware provides HTTP middleware for the gin router.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderXRequestID is the request id header name.
const HeaderXRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request id.
const requestIDKey = "request_id"

// RequestID assigns each request a unique id. An incoming X-Request-ID
// header is honored so ids propagate across services; otherwise a fresh
// UUID is generated. The id is echoed on the response and stored in the
// gin context for the access logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderXRequestID, rid)
		c.Next()
	}
}

// GetRequestID returns the request id stored by RequestID, or an empty
// string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

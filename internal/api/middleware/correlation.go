package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// correlationIDHeader carries the caller's correlation ID. Payment
// confirmations propagate it to the worker so an allocation can be traced
// back to the request that enqueued it.
const correlationIDHeader = "X-Correlation-ID"

const correlationIDKey = "correlation_id"

// CorrelationID assigns each request a correlation ID, honoring one supplied
// by the caller, and echoes it on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(correlationIDHeader, id)
		c.Set(correlationIDKey, id)
		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" outside a
// request handled by the CorrelationID middleware.
func GetCorrelationID(c *gin.Context) string {
	id, _ := c.Value(correlationIDKey).(string)
	return id
}

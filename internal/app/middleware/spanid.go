package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SpanIDHeader carries the request correlation id. Clients may set it;
// otherwise one is generated.
const SpanIDHeader = "X-Span-Id"

const spanIDKey = "span_id"

// SpanID makes every request traceable across log lines and responses.
func SpanID() gin.HandlerFunc {
	return func(c *gin.Context) {
		spanID := c.GetHeader(SpanIDHeader)
		if spanID == "" {
			spanID = uuid.New().String()
		}
		c.Set(spanIDKey, spanID)
		c.Writer.Header().Set(SpanIDHeader, spanID)
		c.Next()
	}
}

// GetSpanID retrieves the request's span id.
func GetSpanID(c *gin.Context) string {
	return c.GetString(spanIDKey)
}

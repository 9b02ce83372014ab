package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-blog/pkg/response"
)

// RequestIDMiddleware injects a request_id into the Gin context and the response headers.
// A well-formed incoming X-Request-ID (a UUID) is kept so callers can correlate logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(response.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(response.RequestIDHeader, id)
		c.Next()
	}
}

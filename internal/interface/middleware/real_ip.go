package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const realIPKey = "real_ip"

// proxy headers in priority order; X-Forwarded-For contributes its left-most entry
var realIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// RealIP stores the client address under "real_ip" for the rate limiter and request log.
// Unparseable header values are skipped; gin's ClientIP is the fallback.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(realIPKey, clientIP(c))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	for _, h := range realIPHeaders {
		v := c.GetHeader(h)
		if h == "X-Forwarded-For" {
			v, _, _ = strings.Cut(v, ",")
		}
		if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
			return ip.String()
		}
	}
	return c.ClientIP()
}

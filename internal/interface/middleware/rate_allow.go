package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP bypasses the limiter for loopback and private-network clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// AllowPathPrefix bypasses the limiter for request paths under any of prefixes, e.g. health probes.
func AllowPathPrefix(prefixes ...string) AllowFunc {
	return func(c *gin.Context) bool {
		p := c.Request.URL.Path
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
		return false
	}
}

// AnyOf bypasses when any of fns does.
func AnyOf(fns ...AllowFunc) AllowFunc {
	return func(c *gin.Context) bool {
		for _, fn := range fns {
			if fn != nil && fn(c) {
				return true
			}
		}
		return false
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-blog/internal/application"
	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	"github.com/oksasatya/go-ddd-blog/pkg/response"
)

// Authenticator resolves an access token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

const (
	msgNoCredentials = "Authentication credentials were not provided."
	msgBadToken      = "Given token not valid for any token type"
)

func bearerToken(c *gin.Context) (string, bool) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// Auth requires a valid bearer access token.
// It sets userID and user (the *entity.User) in the Gin context on success.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			response.Abort(c, http.StatusUnauthorized, msgNoCredentials)
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}
		c.Set("userID", u.ID)
		c.Set("user", u)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous requests through.
// A token that is sent but invalid is still rejected.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}
		c.Set("userID", u.ID)
		c.Set("user", u)
		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		response.Abort(c, http.StatusUnauthorized, msgNoCredentials)
	case errors.Is(err, application.ErrInvalidToken):
		response.Abort(c, http.StatusUnauthorized, msgBadToken)
	default:
		_ = c.Error(err)
		response.Abort(c, http.StatusInternalServerError, "Internal server error.")
	}
}

// CurrentUser returns the account Auth stored in the context.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

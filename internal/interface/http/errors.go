package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/application"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
	"github.com/oksasatya/go-ddd-blog/pkg/response"
	"github.com/oksasatya/go-ddd-blog/pkg/validation"
)

const (
	msgInvalidCredentials = "Invalid credentials."
	msgAccountDisabled    = "User account is disabled."
	msgNotAuthenticated   = "Authentication credentials were not provided."
	msgInvalidToken       = "Token is invalid or expired."
	msgForbidden          = "You do not have permission to perform this action."
	msgNotFound           = "Not found."
	msgInternal           = "Internal server error."
)

// writeError maps application errors to status codes and bodies. Anything unknown is logged and hidden behind a 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	if ve, ok := application.IsValidation(err); ok {
		response.Fields(c, http.StatusBadRequest, ve.Fields)
		return
	}
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Message(c, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, application.ErrAccountDisabled):
		response.Message(c, http.StatusBadRequest, msgAccountDisabled)
	case errors.Is(err, application.ErrUnauthenticated):
		response.Message(c, http.StatusUnauthorized, msgNotAuthenticated)
	case errors.Is(err, application.ErrInvalidToken):
		response.Message(c, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, application.ErrForbidden):
		response.Message(c, http.StatusForbidden, msgForbidden)
	case application.IsNotFound(err):
		response.Message(c, http.StatusNotFound, msgNotFound)
	default:
		if logger != nil {
			helpers.LogError(logger, "request failed", err, logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			})
		}
		_ = c.Error(err)
		response.Message(c, http.StatusInternalServerError, msgInternal)
	}
}

// bindError renders a binding failure as a field map.
func bindError(c *gin.Context, err error) {
	response.Fields(c, http.StatusBadRequest, validation.ToDetails(err))
}

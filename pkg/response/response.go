package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// Detail is the body for errors that are not tied to a single field.
type Detail struct {
	Detail string `json:"detail"`
}

// JSON writes body with status and echoes the request id header.
func JSON(ctx *gin.Context, status int, body any) {
	if status == 0 {
		status = http.StatusOK
	}
	if rid := ctx.GetString("request_id"); rid != "" {
		ctx.Header(RequestIDHeader, rid)
	}
	ctx.JSON(status, body)
}

// Message writes {"detail": message}.
func Message(ctx *gin.Context, status int, message string) {
	JSON(ctx, status, Detail{Detail: message})
}

// Fields writes a field-keyed error map.
func Fields(ctx *gin.Context, status int, fields map[string]string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	JSON(ctx, status, fields)
}

// Abort writes {"detail": message} and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string) {
	if rid := ctx.GetString("request_id"); rid != "" {
		ctx.Header(RequestIDHeader, rid)
	}
	ctx.AbortWithStatusJSON(status, Detail{Detail: message})
}

// NoContent writes an empty 204.
func NoContent(ctx *gin.Context) {
	if rid := ctx.GetString("request_id"); rid != "" {
		ctx.Header(RequestIDHeader, rid)
	}
	ctx.Status(http.StatusNoContent)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-blog/pkg/response"
)

// Check is a named readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type HealthHandler struct {
	Checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

func (h *HealthHandler) Live(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every check; any failure answers 503 with the per-dependency result.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for _, chk := range h.Checks {
		if err := chk.Fn(ctx); err != nil {
			results[chk.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	response.JSON(c, status, gin.H{"status": state, "checks": results})
}

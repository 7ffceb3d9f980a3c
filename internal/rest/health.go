package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

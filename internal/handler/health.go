package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness and which optional surfaces are wired. It never
// calls upstream services.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"history": h.history != nil,
		"mood":    h.mood != nil,
	})
}

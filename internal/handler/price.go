package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPrice returns the current Bitcoin snapshot, served from cache when
// one is fresh.
func (h *Handler) GetPrice(c *gin.Context) {
	if h.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price source unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	snapshot, err := h.prices.FetchSnapshot(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetMood returns the latest Fear & Greed reading.
func (h *Handler) GetMood(c *gin.Context) {
	if h.mood == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market mood unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-mood")
	defer span.End()

	mood, err := h.mood.FetchMood(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mood)
}

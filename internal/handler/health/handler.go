package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/fetcher"
)

type Handler struct {
	client *fetcher.Client
}

func NewHandler(client *fetcher.Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.HealthCheck)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	breaker := h.client.BreakerState()
	status := "healthy"
	code := http.StatusOK
	if breaker == "open" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": "success",
		"data": gin.H{
			"status":           status,
			"upstream_breaker": breaker,
		},
	})
}

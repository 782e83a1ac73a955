package handler

import (
	"net/http"

	"moviefind/internal/model"
	"moviefind/internal/repository"
	"moviefind/internal/service"
	"moviefind/internal/session"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles admin-related endpoints
type AdminHandler struct {
	tmdbService *service.TMDBService
	store       *session.Store
	metrics     *repository.Metrics
}

// NewAdminHandler creates a new AdminHandler. metrics may be nil when Redis
// is not configured.
func NewAdminHandler(tmdb *service.TMDBService, store *session.Store, metrics *repository.Metrics) *AdminHandler {
	return &AdminHandler{
		tmdbService: tmdb,
		store:       store,
		metrics:     metrics,
	}
}

// GetStatus returns service status
// GET /api/v1/status
func (h *AdminHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"tmdb_enabled":    h.tmdbService.IsConfigured(),
		"tmdb_keys":       h.tmdbService.KeyCount(),
		"sessions":        h.store.Len(),
		"metrics_enabled": h.metrics != nil,
	})
}

func (h *AdminHandler) requireMetrics(c *gin.Context) bool {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, model.APIResponse{
			Code:  503,
			Error: "metrics disabled: REDIS_URL not configured",
		})
		return false
	}
	return true
}

// GetAnalytics returns API analytics
// GET /api/v1/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	if !h.requireMetrics(c) {
		return
	}

	stats, err := h.metrics.GetOverallStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: stats,
	})
}

// GetEndpointStats returns stats for one API path or provider endpoint
// GET /api/v1/analytics/endpoint?path=/api/v1/sessions/:id
// GET /api/v1/analytics/endpoint?provider=discover
func (h *AdminHandler) GetEndpointStats(c *gin.Context) {
	if !h.requireMetrics(c) {
		return
	}

	kind, name := "path", c.Query("path")
	if p := c.Query("provider"); p != "" {
		kind, name = "provider", p
	}
	if name == "" {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "path or provider parameter required",
		})
		return
	}

	stats, err := h.metrics.GetCallStats(c.Request.Context(), kind, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: stats,
	})
}

// ResetAnalytics resets all analytics data
// DELETE /api/v1/analytics
func (h *AdminHandler) ResetAnalytics(c *gin.Context) {
	if !h.requireMetrics(c) {
		return
	}

	if err := h.metrics.ResetMetrics(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Message: "all statistics reset",
	})
}

package handler

import (
	"net/http"

	"moviefind/internal/model"
	"moviefind/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GenreHandler serves the genre catalog.
type GenreHandler struct {
	catalog *service.GenreCatalog
}

// NewGenreHandler creates a new GenreHandler
func NewGenreHandler(catalog *service.GenreCatalog) *GenreHandler {
	return &GenreHandler{catalog: catalog}
}

// GetGenres returns the known genres
// GET /api/v1/genres
func (h *GenreHandler) GetGenres(c *gin.Context) {
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.catalog.List(),
	})
}

// RefreshGenres reloads the catalog from the provider, bypassing the cache
// POST /api/v1/genres/refresh
func (h *GenreHandler) RefreshGenres(c *gin.Context) {
	if err := h.catalog.Reload(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("genre refresh failed")
		c.JSON(http.StatusBadGateway, model.APIResponse{
			Code:  502,
			Error: "genre refresh failed, keeping current table",
		})
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: h.catalog.List(),
	})
}

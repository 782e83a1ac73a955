package handler

import (
	"net/http"

	"moviefind/internal/detail"
	"moviefind/internal/model"

	"github.com/gin-gonic/gin"
)

// DetailHandler handles detail API requests
type DetailHandler struct {
	loader    *detail.Loader
	imageBase string
}

// NewDetailHandler creates a new DetailHandler
func NewDetailHandler(loader *detail.Loader, imageBase string) *DetailHandler {
	return &DetailHandler{
		loader:    loader,
		imageBase: imageBase,
	}
}

type detailPayload struct {
	model.DetailView
	Fields *model.DetailFields `json:"fields,omitempty"`
}

// GetDetail returns the detail view of a movie. It is never cached: every
// navigation re-fetches.
// GET /api/v1/movies/:id
func (h *DetailHandler) GetDetail(c *gin.Context) {
	id, err := detail.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: err.Error(),
		})
		return
	}

	view := h.loader.Load(c.Request.Context(), id)
	if view.Error != "" {
		c.JSON(http.StatusBadGateway, model.APIResponse{
			Code:  502,
			Error: view.Error,
			Data:  detailPayload{DetailView: view},
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: detailPayload{DetailView: view, Fields: view.Fields(h.imageBase)},
	})
}

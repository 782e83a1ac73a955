package handler

import (
	"errors"
	"net/http"

	"moviefind/internal/model"
	"moviefind/internal/session"

	"github.com/gin-gonic/gin"
)

// Listing views, in the order the presentation checks them.
const (
	viewLoading = "loading"
	viewError   = "error"
	viewResults = "results"
)

// SessionHandler exposes query controllers over HTTP, one per session.
type SessionHandler struct {
	store     *session.Store
	imageBase string
	genres    model.GenreNamer
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(store *session.Store, imageBase string, genres model.GenreNamer) *SessionHandler {
	return &SessionHandler{
		store:     store,
		imageBase: imageBase,
		genres:    genres,
	}
}

// sessionPayload is the listing view handed to the browser.
type sessionPayload struct {
	ID            string           `json:"id"`
	View          string           `json:"view"`
	State         model.QueryState `json:"state"`
	Cards         []model.Card     `json:"cards"`
	TrendingCards []model.Card     `json:"trending_cards"`
}

func (h *SessionHandler) payload(id string, st model.QueryState) sessionPayload {
	view := viewResults
	switch {
	case st.IsLoading:
		view = viewLoading
	case st.ErrorMessage != "":
		view = viewError
	}
	return sessionPayload{
		ID:            id,
		View:          view,
		State:         st,
		Cards:         model.NewCards(st.Results, h.imageBase, h.genres),
		TrendingCards: model.NewCards(st.Trending, h.imageBase, h.genres),
	}
}

// lookup resolves the :id parameter or writes a 404.
func (h *SessionHandler) lookup(c *gin.Context) (*session.Session, bool) {
	sess, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, model.APIResponse{
			Code:  404,
			Error: "session not found",
		})
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) respond(c *gin.Context, status int, sess *session.Session) {
	c.JSON(status, model.APIResponse{
		Code: status,
		Data: h.payload(sess.ID, sess.Controller.State()),
	})
}

// Create starts a new session
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.store.Create()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrTooManySessions) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, model.APIResponse{
			Code:  status,
			Error: err.Error(),
		})
		return
	}
	h.respond(c, http.StatusCreated, sess)
}

// Get returns the current listing state
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, sess)
}

// SetSearch forwards the raw search text
// PUT /api/v1/sessions/:id/search (body: { text: "..." })
func (h *SessionHandler) SetSearch(c *gin.Context) {
	var body struct {
		Text *string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "invalid body: text is required",
		})
		return
	}

	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	sess.Controller.SetSearchText(*body.Text)
	h.respond(c, http.StatusAccepted, sess)
}

// Paginate moves the browse page
// POST /api/v1/sessions/:id/page (body: { delta: 1 | -1 })
func (h *SessionHandler) Paginate(c *gin.Context) {
	var body struct {
		Delta *int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "invalid body: delta is required",
		})
		return
	}

	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	if !sess.Controller.SetPage(*body.Delta) {
		c.JSON(http.StatusConflict, model.APIResponse{
			Code:    409,
			Message: "page unchanged",
			Data:    h.payload(sess.ID, sess.Controller.State()),
		})
		return
	}
	h.respond(c, http.StatusAccepted, sess)
}

// Refresh re-issues the current request
// POST /api/v1/sessions/:id/refresh
func (h *SessionHandler) Refresh(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	sess.Controller.Refresh()
	h.respond(c, http.StatusAccepted, sess)
}

// Delete ends a session
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, model.APIResponse{
			Code:  404,
			Error: "session not found",
		})
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Message: "session closed",
	})
}

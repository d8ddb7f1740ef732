package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meme-service/library"
	"meme-service/model"
)

// LibraryStore is the client library the handlers call.
type LibraryStore interface {
	Add(ctx context.Context, m model.Meme) error
	Remove(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, u model.MemeUpdate) error
	ToggleFavorite(ctx context.Context, id int64, on bool) error
	Mine() []model.Meme
	History() []model.Meme
	Favorites() []model.Meme
	ClearMine(ctx context.Context) error
	ClearHistory(ctx context.Context) error
	ClearFavorites(ctx context.Context) error
	Stats() library.Stats
}

// LibraryHandler serves /api/library.
type LibraryHandler struct {
	store  LibraryStore
	logger zerolog.Logger
}

func NewLibraryHandler(store LibraryStore, logger zerolog.Logger) *LibraryHandler {
	return &LibraryHandler{store: store, logger: logger}
}

func (h *LibraryHandler) Mine(c *gin.Context)      { c.JSON(http.StatusOK, h.store.Mine()) }
func (h *LibraryHandler) History(c *gin.Context)   { c.JSON(http.StatusOK, h.store.History()) }
func (h *LibraryHandler) Favorites(c *gin.Context) { c.JSON(http.StatusOK, h.store.Favorites()) }
func (h *LibraryHandler) Stats(c *gin.Context)     { c.JSON(http.StatusOK, h.store.Stats()) }

func (h *LibraryHandler) Add(c *gin.Context) {
	var m model.Meme
	if err := c.ShouldBindJSON(&m); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if m.ID <= 0 {
		writeError(c, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.store.Add(c.Request.Context(), m); err != nil {
		fail(c, h.logger, "library add", err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) Remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), id); err != nil {
		fail(c, h.logger, "library remove", err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var u model.MemeUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Update(c.Request.Context(), id, u); err != nil {
		fail(c, h.logger, "library update", err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) ToggleFavorite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.ToggleFavorite(c.Request.Context(), id, req.IsFavorite); err != nil {
		fail(c, h.logger, "library favorite", err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) clear(c *gin.Context, op string, fn func(context.Context) error) {
	if err := fn(c.Request.Context()); err != nil {
		fail(c, h.logger, op, err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) ClearMine(c *gin.Context) {
	h.clear(c, "library clear", h.store.ClearMine)
}

func (h *LibraryHandler) ClearHistory(c *gin.Context) {
	h.clear(c, "library clear history", h.store.ClearHistory)
}

func (h *LibraryHandler) ClearFavorites(c *gin.Context) {
	h.clear(c, "library clear favorites", h.store.ClearFavorites)
}

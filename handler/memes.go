package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meme-service/model"
	"meme-service/utils"
)

// MemeService is the meme API the handlers call.
type MemeService interface {
	GenerateByText(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error)
	GenerateByTemplate(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error)
	List(ctx context.Context, p model.MemeListParams) (model.ListResponse[model.Meme], error)
	Get(ctx context.Context, id int64) (model.Meme, error)
	Delete(ctx context.Context, id int64) error
	SetFavorite(ctx context.Context, id int64, on bool) (model.Meme, error)
	Similar(ctx context.Context, id int64, limit int) ([]model.Meme, error)
}

// MemeHandler serves /api/memes.
type MemeHandler struct {
	svc    MemeService
	logger zerolog.Logger
}

func NewMemeHandler(svc MemeService, logger zerolog.Logger) *MemeHandler {
	return &MemeHandler{svc: svc, logger: logger}
}

func (h *MemeHandler) generate(c *gin.Context, op string, fn func(context.Context, model.GenerateRequest) (model.GenerateResult, error)) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := fn(c.Request.Context(), req)
	if err != nil {
		fail(c, h.logger, op, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *MemeHandler) GenerateByText(c *gin.Context) {
	h.generate(c, "generate", h.svc.GenerateByText)
}

func (h *MemeHandler) GenerateByTemplate(c *gin.Context) {
	h.generate(c, "generate-by-template", h.svc.GenerateByTemplate)
}

func (h *MemeHandler) List(c *gin.Context) {
	var p model.MemeListParams
	if err := c.ShouldBindQuery(&p); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		fail(c, h.logger, "list memes", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MemeHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, "get meme", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MemeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.logger, "delete meme", err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MemeHandler) SetFavorite(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.svc.SetFavorite(c.Request.Context(), id, req.IsFavorite)
	if err != nil {
		fail(c, h.logger, "favorite meme", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MemeHandler) Similar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	out, err := h.svc.Similar(c.Request.Context(), id, limit)
	if err != nil {
		fail(c, h.logger, "similar memes", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *MemeHandler) Styles(c *gin.Context) {
	c.JSON(http.StatusOK, utils.StyleOptions())
}

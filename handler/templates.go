package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meme-service/model"
)

// TemplateService is the template API the handlers call.
type TemplateService interface {
	List(ctx context.Context, p model.TemplateListParams) (model.ListResponse[model.Template], error)
	Get(ctx context.Context, id int64) (model.Template, error)
	Hot(ctx context.Context, limit int) ([]model.Template, error)
	Similar(ctx context.Context, id int64, limit int) ([]model.Template, error)
	Categories() []model.CategoryOption
}

// TemplateHandler serves /api/templates.
type TemplateHandler struct {
	svc    TemplateService
	logger zerolog.Logger
}

func NewTemplateHandler(svc TemplateService, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

func (h *TemplateHandler) List(c *gin.Context) {
	var p model.TemplateListParams
	if err := c.ShouldBindQuery(&p); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		fail(c, h.logger, "list templates", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, "get template", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TemplateHandler) Hot(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	out, err := h.svc.Hot(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.logger, "hot templates", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TemplateHandler) Similar(c *gin.Context) {
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
		fail(c, h.logger, "similar templates", err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TemplateHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Categories())
}

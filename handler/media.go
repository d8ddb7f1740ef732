package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"meme-service/media"
)

// MediaService is the media helper set the handlers call.
type MediaService interface {
	Preview(urls []string, current int) (string, error)
	URLToLocalPath(ctx context.Context, url string) (string, error)
	Resolve(path string) (string, error)
	Compress(ctx context.Context, path string, quality int) string
	Choose(ctx context.Context, opts media.ChooseOptions) ([]string, error)
	ImageInfo(path string) (media.ImageInfo, error)
	SaveToAlbum(ctx context.Context, url string) (string, error)
	Share(ctx context.Context, ch media.Channel, imageURL, title string) error
	ShareMenu() []media.Action
}

// MediaHandler serves /api/media.
type MediaHandler struct {
	svc    MediaService
	logger zerolog.Logger
}

func NewMediaHandler(svc MediaService, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, logger: logger}
}

type previewRequest struct {
	URLs    []string `json:"urls" binding:"required"`
	Current int      `json:"current"`
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

type compressRequest struct {
	Path    string `json:"path" binding:"required"`
	Quality *int   `json:"quality"`
}

type shareRequest struct {
	Channel  media.Channel `json:"channel" binding:"required"`
	ImageURL string        `json:"imageUrl" binding:"required"`
	Title    string        `json:"title"`
}

type pathResponse struct {
	Path string `json:"path"`
}

func (h *MediaHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	url, err := h.svc.Preview(req.URLs, req.Current)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *MediaHandler) Download(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	path, err := h.svc.URLToLocalPath(c.Request.Context(), req.URL)
	if err != nil {
		fail(c, h.logger, "download", err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, pathResponse{Path: path})
}

func (h *MediaHandler) Compress(c *gin.Context) {
	var req compressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	path, err := h.svc.Resolve(req.Path)
	if err != nil {
		fail(c, h.logger, "compress", err, http.StatusBadRequest)
		return
	}
	quality := media.DefaultQuality
	if req.Quality != nil {
		quality = *req.Quality
	}
	c.JSON(http.StatusOK, pathResponse{Path: h.svc.Compress(c.Request.Context(), path, quality)})
}

func (h *MediaHandler) Choose(c *gin.Context) {
	var opts media.ChooseOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	paths, err := h.svc.Choose(c.Request.Context(), opts)
	if err != nil {
		fail(c, h.logger, "choose", err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

func (h *MediaHandler) Info(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		writeError(c, http.StatusBadRequest, "path is required")
		return
	}
	info, err := h.svc.ImageInfo(path)
	if err != nil {
		fail(c, h.logger, "image info", err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *MediaHandler) Save(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	path, err := h.svc.SaveToAlbum(c.Request.Context(), req.URL)
	if err != nil {
		fail(c, h.logger, "save to album", err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, pathResponse{Path: path})
}

func (h *MediaHandler) Share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Share(c.Request.Context(), req.Channel, req.ImageURL, req.Title); err != nil {
		fail(c, h.logger, "share", err, http.StatusBadGateway)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MediaHandler) ShareMenu(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ShareMenu())
}

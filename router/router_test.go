package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/handler"
	"meme-service/library"
	"meme-service/media"
	"meme-service/model"
	"meme-service/repository/memory"
	"meme-service/repository/repotest"
	"meme-service/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T, ping func(context.Context) error) (*gin.Engine, *library.Store) {
	t.Helper()
	logger := zerolog.Nop()
	memes := memory.NewMemes(repotest.SeedMemes())
	templates := memory.NewTemplates(repotest.SeedTemplates())
	lib := library.New(logger)

	dir := t.TempDir()
	host, err := media.NewLocalHost(media.LocalConfig{
		Platform: media.PlatformWeixin,
		MediaDir: filepath.Join(dir, "media"),
		AlbumDir: filepath.Join(dir, "album"),
	})
	require.NoError(t, err)

	opts := service.Options{Library: lib, Logger: logger}
	return Setup(Handlers{
		Memes:     handler.NewMemeHandler(service.NewMemeService(memes, templates, opts), logger),
		Templates: handler.NewTemplateHandler(service.NewTemplateService(templates, opts), logger),
		Library:   handler.NewLibraryHandler(lib, logger),
		Media:     handler.NewMediaHandler(media.NewService(host, logger), logger),
		Ping:      ping,
	}, logger), lib
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	r, _ := newEngine(t, nil)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	r, _ = newEngine(t, func(context.Context) error { return errors.New("mongo down") })
	w = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyAndRefresh(t *testing.T) {
	r, _ := newEngine(t, nil)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/ready", nil).Code)
	// no refresher wired in tests
	assert.Equal(t, http.StatusNotImplemented, do(t, r, http.MethodPost, "/api/templates/refresh", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newEngine(t, nil)
	do(t, r, http.MethodGet, "/api/templates/hot", nil)
	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestMemeLifecycle(t *testing.T) {
	r, lib := newEngine(t, nil)

	w := do(t, r, http.MethodPost, "/api/memes/generate", model.GenerateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/memes/generate", model.GenerateRequest{Text: "下班啦"})
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode[model.GenerateResult](t, w)
	assert.Equal(t, model.StyleFunny, res.Meme.Style)
	assert.Len(t, lib.Mine(), 1)

	path := "/api/memes/" + jsonID(res.Meme.ID)
	w = do(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, path+"/favorite", model.FavoriteRequest{IsFavorite: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.Meme](t, w).IsFavorite)

	w = do(t, r, http.MethodGet, "/api/memes?onlyFavorite=true&pageSize=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[model.ListResponse[model.Meme]](t, w)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.List, 2)

	w = do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "meme no longer exists", decode[handler.ErrorResponse](t, w).Message)

	w = do(t, r, http.MethodGet, "/api/memes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateByTemplateUnknownTemplate(t *testing.T) {
	r, _ := newEngine(t, nil)
	w := do(t, r, http.MethodPost, "/api/memes/generate-by-template", model.GenerateRequest{Text: "x", TemplateID: 99})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateRoutes(t *testing.T) {
	r, _ := newEngine(t, nil)

	w := do(t, r, http.MethodGet, "/api/templates?category=work&sort=latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[model.ListResponse[model.Template]](t, w)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, int64(1), page.List[0].ID)

	w = do(t, r, http.MethodGet, "/api/templates/hot?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Template](t, w), 1)

	w = do(t, r, http.MethodGet, "/api/templates/99/similar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = do(t, r, http.MethodGet, "/api/templates/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.CategoryOption](t, w), 5)

	w = do(t, r, http.MethodGet, "/api/templates/hot?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLibraryRoutes(t *testing.T) {
	r, _ := newEngine(t, nil)

	w := do(t, r, http.MethodPost, "/api/library", model.Meme{ID: 5, Text: "手动添加"})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodPost, "/api/library/5/favorite", model.FavoriteRequest{IsFavorite: true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/library/stats", nil)
	assert.Equal(t, library.Stats{TotalCount: 1, FavoriteCount: 1, GenerateCount: 1}, decode[library.Stats](t, w))

	w = do(t, r, http.MethodDelete, "/api/library/5", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/api/library/favorites", nil)
	assert.Equal(t, "[]", w.Body.String())

	w = do(t, r, http.MethodDelete, "/api/library/history", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, r, http.MethodGet, "/api/library/history", nil)
	assert.Equal(t, "[]", w.Body.String())
}

func TestMediaRoutes(t *testing.T) {
	r, _ := newEngine(t, nil)

	w := do(t, r, http.MethodGet, "/api/media/share-menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	menu := decode[[]media.Action](t, w)
	assert.Equal(t, media.ActionSaveToAlbum, menu[len(menu)-1].Key)

	// wechat is available but no webhook is configured
	w = do(t, r, http.MethodPost, "/api/media/share", map[string]string{"channel": "wechat", "imageUrl": "https://x/y.png"})
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	// local paths outside the media and album directories are refused
	w = do(t, r, http.MethodPost, "/api/media/compress", map[string]string{"path": "/etc/passwd"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodGet, "/api/media/info?path=/etc/passwd", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/api/media/preview", map[string]any{"urls": []string{"a", "b"}, "current": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", decode[map[string]string](t, w)["url"])

	w = do(t, r, http.MethodGet, "/api/media/info", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

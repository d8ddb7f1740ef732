package media

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newHost(t *testing.T, platform Platform, hooks map[Channel]string) *LocalHost {
	t.Helper()
	dir := t.TempDir()
	h, err := NewLocalHost(LocalConfig{
		Platform: platform,
		MediaDir: filepath.Join(dir, "media"),
		AlbumDir: filepath.Join(dir, "album"),
		Webhooks: hooks,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return h
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t, 40, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meme.png":
		case "/private.png":
			w.WriteHeader(http.StatusForbidden)
			return
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPreview(t *testing.T) {
	s := NewService(newHost(t, PlatformWeixin, nil), zerolog.Nop())

	got, err := s.Preview([]string{"a", "b"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = s.Preview(nil, 0)
	assert.Error(t, err)
	_, err = s.Preview([]string{"a"}, 3)
	assert.Error(t, err)
}

func TestDownloadAndImageInfo(t *testing.T) {
	srv := imageServer(t)
	s := NewService(newHost(t, PlatformWeixin, nil), zerolog.Nop())
	ctx := context.Background()

	path, err := s.Download(ctx, srv.URL+"/meme.png")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	info, err := s.ImageInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 20, info.Height)
	assert.Equal(t, "png", info.Type)

	_, err = s.URLToLocalPath(ctx, srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	_, err = s.Download(ctx, srv.URL+"/private.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestResolveRestrictsToStorage(t *testing.T) {
	h := newHost(t, PlatformWeixin, nil)
	s := NewService(h, zerolog.Nop())

	inMedia := filepath.Join(h.cfg.MediaDir, "a.png")
	got, err := s.Resolve(inMedia)
	require.NoError(t, err)
	assert.Equal(t, inMedia, got)

	_, err = s.Resolve(filepath.Join(h.cfg.AlbumDir, "sub", "b.jpg"))
	assert.NoError(t, err)

	for _, p := range []string{
		"/etc/passwd",
		filepath.Join(h.cfg.MediaDir, "..", "..", "secret.png"),
		h.cfg.MediaDir + "-other/x.png",
	} {
		_, err := s.Resolve(p)
		assert.ErrorIs(t, err, ErrPathNotAllowed, p)
		assert.ErrorIs(t, err, ErrPermissionDenied, p)
	}

	_, err = s.ImageInfo("/etc/passwd")
	assert.ErrorIs(t, err, ErrPathNotAllowed)
}

func TestCompress(t *testing.T) {
	ctx := context.Background()
	h := newHost(t, PlatformWeixin, nil)
	s := NewService(h, zerolog.Nop())

	src := filepath.Join(h.cfg.MediaDir, "big.png")
	require.NoError(t, os.WriteFile(src, pngBytes(t, 2000, 500), 0o644))

	out := s.Compress(ctx, src, 150)
	require.NotEqual(t, src, out)
	info, err := s.ImageInfo(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Type)
	assert.Equal(t, MaxDimension, info.Width)

	corrupt := filepath.Join(h.cfg.MediaDir, "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0o644))
	before, err := os.ReadDir(h.cfg.MediaDir)
	require.NoError(t, err)
	assert.Equal(t, corrupt, s.Compress(ctx, corrupt, DefaultQuality))
	after, err := os.ReadDir(h.cfg.MediaDir)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "failed compression must not leave files behind")
}

func TestCompressOnH5ReturnsOriginal(t *testing.T) {
	s := NewService(newHost(t, PlatformH5, nil), zerolog.Nop())
	assert.Equal(t, "/tmp/x.png", s.Compress(context.Background(), "/tmp/x.png", 50))
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 0, ClampQuality(-5))
	assert.Equal(t, 80, ClampQuality(80))
	assert.Equal(t, 100, ClampQuality(300))
}

func TestSaveToAlbumAndChoose(t *testing.T) {
	srv := imageServer(t)
	ctx := context.Background()
	h := newHost(t, PlatformWeixin, nil)
	s := NewService(h, zerolog.Nop())

	saved, err := s.SaveToAlbum(ctx, srv.URL+"/meme.png")
	require.NoError(t, err)
	assert.Equal(t, h.cfg.AlbumDir, filepath.Dir(saved))

	_, err = s.SaveToAlbum(ctx, srv.URL+"/missing.png")
	assert.Error(t, err)

	paths, err := s.Choose(ctx, ChooseOptions{Count: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{saved}, paths)

	_, err = s.Choose(ctx, ChooseOptions{SourceType: []string{"camera"}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestShare(t *testing.T) {
	var got map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer hook.Close()

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer denied.Close()

	ctx := context.Background()
	s := NewService(newHost(t, PlatformWeixin, map[Channel]string{ChannelWeChat: hook.URL}), zerolog.Nop())

	require.NoError(t, s.Share(ctx, ChannelWeChat, "https://img/x.png", ""))
	assert.Equal(t, "news", got["msgtype"])
	articles := got["news"].(map[string]any)["articles"].([]any)
	assert.Equal(t, DefaultTitle, articles[0].(map[string]any)["title"])

	err := s.Share(ctx, ChannelDingTalk, "https://img/x.png", "t")
	assert.ErrorIs(t, err, ErrUnsupported)

	s = NewService(newHost(t, PlatformAlipay, map[Channel]string{ChannelDingTalk: denied.URL}), zerolog.Nop())
	err = s.Share(ctx, ChannelDingTalk, "https://img/x.png", "t")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestShareMenu(t *testing.T) {
	assert.Equal(t, []Action{
		{Key: "wechat", Label: "分享到微信"},
		{Key: ActionSaveToAlbum, Label: "保存到相册"},
	}, ShareMenu(PlatformWeixin))

	alipay := ShareMenu(PlatformAlipay)
	require.Len(t, alipay, 2)
	assert.Equal(t, "dingtalk", alipay[0].Key)

	assert.Equal(t, []Action{{Key: ActionSaveToAlbum, Label: "保存到相册"}}, ShareMenu(PlatformH5))
}

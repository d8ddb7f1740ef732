package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// MaxDimension bounds the longer edge of compressed images.
const MaxDimension = 1080

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif"}

// LocalConfig configures a LocalHost.
type LocalConfig struct {
	Platform Platform
	// MediaDir holds downloads and compressed files.
	MediaDir string
	// AlbumDir is the photo album images are saved to and chosen from.
	AlbumDir string
	Webhooks map[Channel]string
	Timeout  time.Duration
}

// LocalHost implements Host on the local file system, fetching over HTTP
// and sharing through chat-robot webhooks.
type LocalHost struct {
	cfg    LocalConfig
	client *resty.Client
}

// NewLocalHost creates the media and album directories if needed.
func NewLocalHost(cfg LocalConfig) (*LocalHost, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	for _, dir := range []string{cfg.MediaDir, cfg.AlbumDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "meme-service/1.0")
	return &LocalHost{cfg: cfg, client: client}, nil
}

func (h *LocalHost) Platform() Platform { return h.cfg.Platform }

func (h *LocalHost) Roots() []string { return []string{h.cfg.MediaDir, h.cfg.AlbumDir} }

func extension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); slices.Contains(imageExts, ext) {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			return exts[0]
		}
	}
	return ".jpg"
}

func (h *LocalHost) newPath(dir, ext string) string {
	return filepath.Join(dir, uuid.NewString()+ext)
}

func (h *LocalHost) Download(ctx context.Context, rawURL string) (string, error) {
	resp, err := h.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("download failed with status code %d: %w", resp.StatusCode(), ErrPermissionDenied)
	default:
		return "", fmt.Errorf("download failed with status code %d", resp.StatusCode())
	}

	dst := h.newPath(h.cfg.MediaDir, extension(rawURL, resp.Header().Get("Content-Type")))
	if err := os.WriteFile(dst, resp.Body(), 0o644); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return dst, nil
}

func (h *LocalHost) Compress(_ context.Context, src string, quality int) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", src, err)
	}
	b := img.Bounds()
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		img = resize.Thumbnail(MaxDimension, MaxDimension, img, resize.Lanczos3)
	}

	// encode in memory so a failure leaves nothing behind in MediaDir
	var buf bytes.Buffer
	// jpeg rejects quality 0
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: max(quality, 1)}); err != nil {
		return "", fmt.Errorf("encode %s: %w", src, err)
	}
	dst := h.newPath(h.cfg.MediaDir, ".jpg")
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}

func (h *LocalHost) SaveToAlbum(_ context.Context, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dst := filepath.Join(h.cfg.AlbumDir, filepath.Base(src))
	out, err := os.Create(dst)
	if errors.Is(err, fs.ErrPermission) {
		return "", fmt.Errorf("write album: %w", ErrPermissionDenied)
	}
	if err != nil {
		return "", fmt.Errorf("write album: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy to album: %w", err)
	}
	return dst, out.Close()
}

type webhookResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func webhookPayload(ch Channel, imageURL, title string) map[string]any {
	if ch == ChannelDingTalk {
		return map[string]any{
			"msgtype": "markdown",
			"markdown": map[string]any{
				"title": title,
				"text":  fmt.Sprintf("### %s\n![%s](%s)", title, title, imageURL),
			},
		}
	}
	return map[string]any{
		"msgtype": "news",
		"news": map[string]any{
			"articles": []map[string]any{
				{"title": title, "url": imageURL, "picurl": imageURL},
			},
		},
	}
}

func (h *LocalHost) Share(ctx context.Context, ch Channel, imageURL, title string) error {
	hook := h.cfg.Webhooks[ch]
	if hook == "" {
		return fmt.Errorf("no webhook configured for %s: %w", ch, ErrUnsupported)
	}

	var result webhookResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(webhookPayload(ch, imageURL, title)).
		SetResult(&result).
		Post(hook)
	if err != nil {
		return fmt.Errorf("share to %s: %w", ch, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("share to %s: %w", ch, ErrPermissionDenied)
	case !resp.IsSuccess():
		return fmt.Errorf("share to %s failed with status code %d", ch, resp.StatusCode())
	case result.ErrCode != 0:
		return fmt.Errorf("share to %s rejected: %d %s", ch, result.ErrCode, result.ErrMsg)
	}
	return nil
}

func (h *LocalHost) Choose(_ context.Context, opts ChooseOptions) ([]string, error) {
	if !slices.Contains(opts.SourceType, "album") {
		return nil, fmt.Errorf("choose from %v: %w", opts.SourceType, ErrUnsupported)
	}

	entries, err := os.ReadDir(h.cfg.AlbumDir)
	if err != nil {
		return nil, fmt.Errorf("read album: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(h.cfg.AlbumDir, e.Name()), info.ModTime()})
	}
	slices.SortStableFunc(found, func(a, b candidate) int { return b.mod.Compare(a.mod) })

	out := make([]string, 0, min(opts.Count, len(found)))
	for _, c := range found[:min(opts.Count, len(found))] {
		out = append(out, c.path)
	}
	return out, nil
}

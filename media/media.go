// Package media wraps the image and sharing capabilities of the host
// platform: preview, download, compression, album access and sharing to
// chat apps.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// decoders for ImageInfo and compression
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"meme-service/metrics"
)

var (
	// ErrPermissionDenied reports that the user or the remote side refused
	// access. It is distinct from ordinary failures so callers can prompt
	// for authorisation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnsupported reports a capability the current platform lacks.
	ErrUnsupported = errors.New("not supported on this platform")
	// ErrPathNotAllowed reports a local path outside the host's storage.
	ErrPathNotAllowed = fmt.Errorf("path outside media storage: %w", ErrPermissionDenied)
)

// Platform identifies the runtime the client runs on.
type Platform string

const (
	PlatformWeixin Platform = "mp-weixin"
	PlatformAlipay Platform = "mp-alipay"
	PlatformH5     Platform = "h5"
)

// Channel is a share destination.
type Channel string

const (
	ChannelWeChat   Channel = "wechat"
	ChannelDingTalk Channel = "dingtalk"
)

const (
	DefaultTitle   = "AI表情包"
	DefaultQuality = 80
	MaxChooseCount = 9
)

// ChooseOptions restricts image selection.
type ChooseOptions struct {
	Count      int      `json:"count" form:"count"`
	SizeType   []string `json:"sizeType" form:"sizeType"`
	SourceType []string `json:"sourceType" form:"sourceType"`
}

// ImageInfo describes a local image.
type ImageInfo struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
}

// Action is one entry of the share menu.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

const ActionSaveToAlbum = "save"

// Host is the platform the helpers delegate to. Every call is single-shot.
type Host interface {
	Platform() Platform
	// Roots lists the directories local paths may refer to.
	Roots() []string
	Download(ctx context.Context, url string) (string, error)
	Compress(ctx context.Context, path string, quality int) (string, error)
	SaveToAlbum(ctx context.Context, path string) (string, error)
	Share(ctx context.Context, ch Channel, imageURL, title string) error
	Choose(ctx context.Context, opts ChooseOptions) ([]string, error)
}

// Service exposes the media helpers on top of a Host.
type Service struct {
	host   Host
	logger zerolog.Logger
}

// NewService returns a Service backed by host.
func NewService(host Host, logger zerolog.Logger) *Service {
	return &Service{host: host, logger: logger}
}

func observe(operation string, err error) {
	metrics.MediaOperationsTotal.WithLabelValues(operation, metrics.Status(err)).Inc()
}

// Preview returns the url that should be shown first.
func (s *Service) Preview(urls []string, current int) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("preview: no images")
	}
	if current < 0 || current >= len(urls) {
		return "", fmt.Errorf("preview: index %d out of range [0,%d)", current, len(urls))
	}
	return urls[current], nil
}

// Download fetches url to a local file and returns its path.
func (s *Service) Download(ctx context.Context, url string) (string, error) {
	path, err := s.host.Download(ctx, url)
	observe("download", err)
	return path, err
}

// URLToLocalPath is Download with the failure logged.
func (s *Service) URLToLocalPath(ctx context.Context, url string) (string, error) {
	path, err := s.Download(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Image download failed")
		return "", err
	}
	return path, nil
}

// Resolve cleans a client-supplied local path and checks that it lies inside
// one of the host's storage directories.
func (s *Service) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	for _, root := range s.host.Roots() {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return abs, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrPathNotAllowed)
}

// ClampQuality limits quality to 0..100.
func ClampQuality(quality int) int {
	return min(max(quality, 0), 100)
}

// Compress re-encodes the image at path. It never fails: when compression
// is unavailable or errors, the original path is returned.
func (s *Service) Compress(ctx context.Context, path string, quality int) string {
	if s.host.Platform() == PlatformH5 {
		return path
	}
	out, err := s.host.Compress(ctx, path, ClampQuality(quality))
	observe("compress", err)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Image compression failed, using original")
		return path
	}
	return out
}

// Choose returns up to opts.Count images picked from the album.
func (s *Service) Choose(ctx context.Context, opts ChooseOptions) ([]string, error) {
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.Count > MaxChooseCount {
		opts.Count = MaxChooseCount
	}
	if len(opts.SizeType) == 0 {
		opts.SizeType = []string{"compressed"}
	}
	if len(opts.SourceType) == 0 {
		opts.SourceType = []string{"album", "camera"}
	}
	paths, err := s.host.Choose(ctx, opts)
	observe("choose", err)
	return paths, err
}

// ImageInfo reads the dimensions and format of a local image inside the
// host's storage.
func (s *Service) ImageInfo(path string) (ImageInfo, error) {
	path, err := s.Resolve(path)
	if err != nil {
		return ImageInfo{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image config: %w", err)
	}
	return ImageInfo{Path: path, Width: cfg.Width, Height: cfg.Height, Type: format}, nil
}

// SaveToAlbum downloads url and stores it in the album. A refusal is
// reported as ErrPermissionDenied.
func (s *Service) SaveToAlbum(ctx context.Context, url string) (string, error) {
	local, err := s.Download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download for album: %w", err)
	}
	saved, err := s.host.SaveToAlbum(ctx, local)
	observe("save", err)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			s.logger.Warn().Str("url", url).Msg("Album permission denied")
		}
		return "", err
	}
	return saved, nil
}

// Available reports whether ch can be used on platform.
func Available(platform Platform, ch Channel) bool {
	switch ch {
	case ChannelWeChat:
		return platform == PlatformWeixin
	case ChannelDingTalk:
		return platform == PlatformAlipay
	default:
		return false
	}
}

// Share sends the image to a chat app. An empty title uses DefaultTitle.
func (s *Service) Share(ctx context.Context, ch Channel, imageURL, title string) error {
	if !Available(s.host.Platform(), ch) {
		observe("share", ErrUnsupported)
		return fmt.Errorf("share to %s: %w", ch, ErrUnsupported)
	}
	if title == "" {
		title = DefaultTitle
	}
	err := s.host.Share(ctx, ch, imageURL, title)
	observe("share", err)
	return err
}

var shareLabels = map[Channel]string{
	ChannelWeChat:   "分享到微信",
	ChannelDingTalk: "分享到钉钉",
}

// ShareMenu lists the share actions of platform. Saving to the album is
// always offered, last.
func ShareMenu(platform Platform) []Action {
	var actions []Action
	for _, ch := range []Channel{ChannelWeChat, ChannelDingTalk} {
		if Available(platform, ch) {
			actions = append(actions, Action{Key: string(ch), Label: shareLabels[ch]})
		}
	}
	return append(actions, Action{Key: ActionSaveToAlbum, Label: "保存到相册"})
}

// ShareMenu lists the share actions of the host platform.
func (s *Service) ShareMenu() []Action {
	return ShareMenu(s.host.Platform())
}

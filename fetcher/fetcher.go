// Package fetcher imports meme templates from public sources.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"meme-service/model"
)

const (
	DefaultImgflipURL = "https://api.imgflip.com/get_memes"
	DefaultRedditURL  = "https://www.reddit.com/r/memes/top.json?limit=20&t=day"

	// HotCount is how many of the leading imgflip templates are marked hot.
	HotCount = 10
)

type imgflipResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Memes []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			URL      string `json:"url"`
			BoxCount int    `json:"box_count"`
		} `json:"memes"`
	} `json:"data"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				URL   string `json:"url"`
				Score int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Config configures a Fetcher. Empty URLs disable the source.
type Config struct {
	ImgflipURL string
	RedditURL  string
	Timeout    time.Duration
}

// Fetcher downloads template catalogues.
type Fetcher struct {
	cfg    Config
	client *resty.Client
	now    func() time.Time
	logger zerolog.Logger
}

// New returns a Fetcher.
func New(cfg Config, logger zerolog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; MemeServiceBot/1.0)")
	return &Fetcher{cfg: cfg, client: client, now: time.Now, logger: logger}
}

// FetchImgflip returns the imgflip catalogue as templates, most popular
// first.
func (f *Fetcher) FetchImgflip(ctx context.Context) ([]model.Template, error) {
	f.logger.Info().Str("url", f.cfg.ImgflipURL).Msg("Fetching templates from Imgflip")

	var result imgflipResponse
	resp, err := f.client.R().SetContext(ctx).SetResult(&result).Get(f.cfg.ImgflipURL)
	if err != nil {
		return nil, fmt.Errorf("imgflip fetch: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("imgflip returned status %d", resp.StatusCode())
	}
	if !result.Success {
		return nil, errors.New("imgflip reported failure")
	}

	now := f.now()
	out := []model.Template{}
	for i, m := range result.Data.Memes {
		id, err := strconv.ParseInt(m.ID, 10, 64)
		if err != nil {
			f.logger.Debug().Str("id", m.ID).Msg("Skipping imgflip template with non-numeric id")
			continue
		}
		out = append(out, model.Template{
			ID:           id,
			Name:         m.Name,
			Description:  fmt.Sprintf("Imgflip template with %d text boxes", m.BoxCount),
			ThumbnailURL: m.URL,
			ImageURL:     m.URL,
			Category:     model.CategoryLife,
			Styles:       []model.Style{model.StyleFunny},
			CreatedAt:    now,
			IsHot:        i < HotCount,
		})
	}
	f.logger.Info().Int("count", len(out)).Msg("Fetched templates from Imgflip")
	return out, nil
}

// FetchReddit returns today's top r/memes images as templates. Only direct
// jpg and png links are kept.
func (f *Fetcher) FetchReddit(ctx context.Context) ([]model.Template, error) {
	f.logger.Info().Str("url", f.cfg.RedditURL).Msg("Fetching templates from Reddit")

	var listing redditListing
	resp, err := f.client.R().SetContext(ctx).SetResult(&listing).Get(f.cfg.RedditURL)
	if err != nil {
		return nil, fmt.Errorf("reddit fetch: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("reddit returned status %d", resp.StatusCode())
	}

	now := f.now()
	out := []model.Template{}
	for _, child := range listing.Data.Children {
		m := child.Data
		if !strings.HasSuffix(m.URL, ".jpg") && !strings.HasSuffix(m.URL, ".png") {
			continue
		}
		// reddit ids are base36
		id, err := strconv.ParseInt(m.ID, 36, 64)
		if err != nil {
			continue
		}
		out = append(out, model.Template{
			ID:            id,
			Name:          m.Title,
			ThumbnailURL:  m.URL,
			ImageURL:      m.URL,
			Category:      model.CategoryEmotion,
			Styles:        []model.Style{model.StyleFunny},
			FavoriteCount: m.Score,
			CreatedAt:     now,
		})
	}
	f.logger.Info().Int("count", len(out)).Msg("Fetched templates from Reddit")
	return out, nil
}

// Fetch combines every configured source and drops duplicate images. It
// fails only when every source fails.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.Template, error) {
	var (
		all  []model.Template
		errs []error
	)
	sources := []struct {
		url   string
		fetch func(context.Context) ([]model.Template, error)
	}{
		{f.cfg.ImgflipURL, f.FetchImgflip},
		{f.cfg.RedditURL, f.FetchReddit},
	}
	for _, src := range sources {
		if src.url == "" {
			continue
		}
		items, err := src.fetch(ctx)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", src.url).Msg("Template source failed")
			errs = append(errs, err)
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return Deduplicate(all), nil
}

// Deduplicate keeps the first template per image url and per id.
func Deduplicate(items []model.Template) []model.Template {
	seenURL := map[string]bool{}
	seenID := map[int64]bool{}
	result := []model.Template{}
	for _, t := range items {
		if seenURL[t.ImageURL] || seenID[t.ID] {
			continue
		}
		seenURL[t.ImageURL] = true
		seenID[t.ID] = true
		result = append(result, t)
	}
	return result
}

package service

import (
	"context"
	"fmt"
	"time"

	"meme-service/metrics"
	"meme-service/model"
	"meme-service/repository"
	"meme-service/utils"
)

const (
	modeText     = "text"
	modeTemplate = "template"
)

// MemeService generates memes and manages the user's meme collection.
type MemeService struct {
	memes     repository.Memes
	templates repository.Templates
	opts      Options
	ids       *IDGenerator
}

// NewMemeService wires a MemeService.
func NewMemeService(memes repository.Memes, templates repository.Templates, opts Options) *MemeService {
	opts = opts.withDefaults()
	return &MemeService{
		memes:     memes,
		templates: templates,
		opts:      opts,
		ids:       NewIDGenerator(opts.Clock),
	}
}

func resolveStyle(s, fallback model.Style) (model.Style, error) {
	if s == "" {
		return fallback, nil
	}
	if !s.Valid() {
		return "", model.NewValidationError("style", fmt.Sprintf("unknown style %q", s))
	}
	return s, nil
}

// GenerateByText creates a meme from free text. Style defaults to funny.
func (s *MemeService) GenerateByText(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error) {
	if req.Text == "" {
		return model.GenerateResult{}, model.NewValidationError("text", "text is required")
	}
	style, err := resolveStyle(req.Style, model.StyleFunny)
	if err != nil {
		return model.GenerateResult{}, err
	}
	return s.generate(ctx, modeText, req.Text, style, nil)
}

// GenerateByTemplate creates a meme from a template. The template text wins
// over the plain text, and style defaults to cute.
func (s *MemeService) GenerateByTemplate(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error) {
	if req.TemplateID == 0 {
		return model.GenerateResult{}, model.NewValidationError("templateId", "templateId is required")
	}
	text := req.TemplateText
	if text == "" {
		text = req.Text
	}
	if text == "" {
		return model.GenerateResult{}, model.NewValidationError("text", "text or templateText is required")
	}
	style, err := resolveStyle(req.Style, model.StyleCute)
	if err != nil {
		return model.GenerateResult{}, err
	}

	if _, err := s.templates.Get(ctx, req.TemplateID); err != nil {
		return model.GenerateResult{}, err
	}

	templateID := req.TemplateID
	res, err := s.generate(ctx, modeTemplate, text, style, &templateID)
	if err != nil {
		return res, err
	}
	if err := s.templates.IncrementUse(ctx, templateID); err != nil {
		s.opts.Logger.Warn().Err(err).Int64("template_id", templateID).Msg("Failed to increment template use count")
	}
	return res, nil
}

func (s *MemeService) generate(ctx context.Context, mode, text string, style model.Style, templateID *int64) (model.GenerateResult, error) {
	start := time.Now()
	if err := sleep(ctx, s.opts.Latency.Generate); err != nil {
		return model.GenerateResult{}, err
	}

	meme := model.Meme{
		ID:         s.ids.Next(),
		ImageURL:   PlaceholderURL(style, text),
		Text:       text,
		Style:      style,
		TemplateID: templateID,
		CreatedAt:  s.opts.Clock(),
	}
	if err := s.memes.Insert(ctx, meme); err != nil {
		return model.GenerateResult{}, fmt.Errorf("store generated meme: %w", err)
	}
	if s.opts.Library != nil {
		if err := s.opts.Library.Add(ctx, meme); err != nil {
			s.opts.Logger.Warn().Err(err).Int64("meme_id", meme.ID).Msg("Failed to add meme to library")
		}
	}

	elapsed := time.Since(start)
	metrics.MemesGenerated.WithLabelValues(mode, string(style)).Inc()
	metrics.MemeGenerationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())

	s.publish(ctx, model.MemeEvent{Type: model.EventMemeGenerated, MemeID: meme.ID, Meme: &meme})

	s.opts.Logger.Info().
		Int64("meme_id", meme.ID).
		Str("mode", mode).
		Str("style", string(style)).
		Dur("elapsed", elapsed).
		Msg("Meme generated")

	return model.GenerateResult{Meme: meme, Duration: elapsed.Seconds()}, nil
}

func (s *MemeService) publish(ctx context.Context, e model.MemeEvent) {
	if err := s.opts.Publisher.Publish(ctx, e); err != nil {
		s.opts.Logger.Warn().Err(err).Str("type", e.Type).Int64("meme_id", e.MemeID).Msg("Failed to publish meme event")
	}
}

// List returns one page of memes.
func (s *MemeService) List(ctx context.Context, p model.MemeListParams) (model.ListResponse[model.Meme], error) {
	if err := sleep(ctx, s.opts.Latency.List); err != nil {
		return model.ListResponse[model.Meme]{}, err
	}
	return s.memes.List(ctx, p)
}

// Get returns a single meme.
func (s *MemeService) Get(ctx context.Context, id int64) (model.Meme, error) {
	if err := sleep(ctx, s.opts.Latency.Detail); err != nil {
		return model.Meme{}, err
	}
	return s.memes.Get(ctx, id)
}

// Delete removes a meme. Unknown ids succeed.
func (s *MemeService) Delete(ctx context.Context, id int64) error {
	if err := sleep(ctx, s.opts.Latency.Detail); err != nil {
		return err
	}
	if err := s.memes.Delete(ctx, id); err != nil {
		return err
	}
	if s.opts.Library != nil {
		if err := s.opts.Library.Remove(ctx, id); err != nil {
			s.opts.Logger.Warn().Err(err).Int64("meme_id", id).Msg("Failed to remove meme from library")
		}
	}
	s.publish(ctx, model.MemeEvent{Type: model.EventMemeDeleted, MemeID: id})
	return nil
}

// SetFavorite sets or clears the favorite flag and returns the updated meme.
func (s *MemeService) SetFavorite(ctx context.Context, id int64, on bool) (model.Meme, error) {
	if err := sleep(ctx, s.opts.Latency.Detail); err != nil {
		return model.Meme{}, err
	}
	meme, err := s.memes.SetFavorite(ctx, id, on)
	if err != nil {
		return model.Meme{}, err
	}
	if s.opts.Library != nil {
		// the library copy mirrors both the flag and the counter
		err := s.opts.Library.ToggleFavorite(ctx, id, on)
		if err == nil {
			err = s.opts.Library.Update(ctx, id, model.MemeUpdate{FavoriteCount: &meme.FavoriteCount})
		}
		if err != nil {
			s.opts.Logger.Warn().Err(err).Int64("meme_id", id).Msg("Failed to update library favorite")
		}
	}

	action := "unfavorite"
	if on {
		action = "favorite"
	}
	metrics.MemeFavoriteToggles.WithLabelValues(action).Inc()
	s.publish(ctx, model.MemeEvent{Type: model.EventMemeFavorited, MemeID: id, Favorite: &on})
	return meme, nil
}

// Similar returns up to limit other memes. A non-positive limit uses the
// default of 4.
func (s *MemeService) Similar(ctx context.Context, id int64, limit int) ([]model.Meme, error) {
	if limit <= 0 {
		limit = utils.DefaultSimilarLimit
	}
	if err := sleep(ctx, s.opts.Latency.List); err != nil {
		return nil, err
	}
	return s.memes.Similar(ctx, id, limit)
}

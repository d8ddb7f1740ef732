package service

import (
	"context"

	"meme-service/metrics"
	"meme-service/model"
	"meme-service/repository"
	"meme-service/utils"
)

// TemplateService browses the template catalogue.
type TemplateService struct {
	templates repository.Templates
	opts      Options
}

// NewTemplateService wires a TemplateService. Only Latency and Logger of
// opts are used.
func NewTemplateService(templates repository.Templates, opts Options) *TemplateService {
	return &TemplateService{templates: templates, opts: opts.withDefaults()}
}

func (s *TemplateService) served(items []model.Template) {
	for _, t := range items {
		metrics.TemplatesServed.WithLabelValues(string(t.Category)).Inc()
	}
}

// List returns one page of templates.
func (s *TemplateService) List(ctx context.Context, p model.TemplateListParams) (model.ListResponse[model.Template], error) {
	if err := sleep(ctx, s.opts.Latency.List); err != nil {
		return model.ListResponse[model.Template]{}, err
	}
	res, err := s.templates.List(ctx, p)
	if err != nil {
		return res, err
	}
	s.served(res.List)
	return res, nil
}

// Get returns a single template.
func (s *TemplateService) Get(ctx context.Context, id int64) (model.Template, error) {
	if err := sleep(ctx, s.opts.Latency.Detail); err != nil {
		return model.Template{}, err
	}
	return s.templates.Get(ctx, id)
}

// Hot returns up to limit hot templates, most used first. A non-positive
// limit uses the default of 6.
func (s *TemplateService) Hot(ctx context.Context, limit int) ([]model.Template, error) {
	if limit <= 0 {
		limit = utils.DefaultHotLimit
	}
	if err := sleep(ctx, s.opts.Latency.Hot); err != nil {
		return nil, err
	}
	out, err := s.templates.Hot(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.served(out)
	return out, nil
}

// Similar returns up to limit templates of the same category. An unknown id
// yields an empty list.
func (s *TemplateService) Similar(ctx context.Context, id int64, limit int) ([]model.Template, error) {
	if limit <= 0 {
		limit = utils.DefaultSimilarLimit
	}
	if err := sleep(ctx, s.opts.Latency.List); err != nil {
		return nil, err
	}
	return s.templates.Similar(ctx, id, limit)
}

// Categories returns the category table.
func (s *TemplateService) Categories() []model.CategoryOption {
	out := make([]model.CategoryOption, len(utils.Categories))
	copy(out, utils.Categories)
	return out
}

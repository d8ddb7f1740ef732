// Package worker consumes asynchronous generation requests from NATS and
// periodically refreshes the template catalogue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"meme-service/events"
	"meme-service/metrics"
	"meme-service/model"
)

// Generator produces memes.
type Generator interface {
	GenerateByText(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error)
	GenerateByTemplate(ctx context.Context, req model.GenerateRequest) (model.GenerateResult, error)
}

// TemplateSource yields a fresh template catalogue.
type TemplateSource interface {
	Fetch(ctx context.Context) ([]model.Template, error)
}

// TemplateSink stores refreshed templates.
type TemplateSink interface {
	Upsert(ctx context.Context, templates ...model.Template) error
}

// Config configures a Worker.
type Config struct {
	// RefreshInterval is the template refresh period. Zero disables the
	// scheduler.
	RefreshInterval time.Duration
	// JobTimeout bounds the handling of one generation request.
	JobTimeout time.Duration
}

type Worker struct {
	cfg        Config
	conn       *nats.Conn
	gen        Generator
	source     TemplateSource
	sink       TemplateSink
	sub        *nats.Subscription
	cancelFunc context.CancelFunc
	now        func() time.Time
	logger     zerolog.Logger
}

// New returns a worker. source and sink may be nil when the scheduler is
// disabled.
func New(cfg Config, conn *nats.Conn, gen Generator, source TemplateSource, sink TemplateSink, logger zerolog.Logger) *Worker {
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	return &Worker{
		cfg:    cfg,
		conn:   conn,
		gen:    gen,
		source: source,
		sink:   sink,
		now:    time.Now,
		logger: logger,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting meme worker")

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	if w.conn != nil {
		sub, err := w.conn.Subscribe(events.SubjectGenerate, func(msg *nats.Msg) {
			w.handleGenerateRequest(workerCtx, msg)
		})
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe %s: %w", events.SubjectGenerate, err)
		}
		w.sub = sub
		w.logger.Info().Str("subject", events.SubjectGenerate).Msg("Subscribed")
	}

	if w.cfg.RefreshInterval > 0 && w.source != nil && w.sink != nil {
		go w.startScheduler(workerCtx)
	}
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info().Msg("Stopping meme worker")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.sub != nil {
		_ = w.sub.Unsubscribe()
	}
}

func (w *Worker) handleGenerateRequest(ctx context.Context, msg *nats.Msg) {
	result := w.Process(ctx, msg.Data)
	metrics.NatsMessagesReceived.WithLabelValues(msg.Subject, statusOf(result)).Inc()

	data, err := json.Marshal(result)
	if err != nil {
		w.logger.Error().Err(err).Str("request_id", result.RequestID).Msg("Failed to encode generation result")
		return
	}

	subject := events.SubjectResult
	if msg.Reply != "" {
		subject = msg.Reply
	}
	err = w.conn.Publish(subject, data)
	metrics.NatsMessagesPublished.WithLabelValues(events.SubjectResult, metrics.Status(err)).Inc()
	if err != nil {
		w.logger.Error().Err(err).Str("request_id", result.RequestID).Msg("Failed to publish generation result")
		return
	}
	w.logger.Info().
		Str("request_id", result.RequestID).
		Bool("success", result.Success).
		Msg("Completed generation request")
}

func statusOf(r model.GenerateJobResult) string {
	if r.Success {
		return "success"
	}
	return "error"
}

// Process decodes one generation job and runs it. Failures are reported in
// the result rather than returned.
func (w *Worker) Process(ctx context.Context, data []byte) model.GenerateJobResult {
	var job model.GenerateJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to unmarshal generation request")
		return model.GenerateJobResult{Error: "invalid request: " + err.Error(), ProcessedAt: w.now()}
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	generate := w.gen.GenerateByText
	if job.Request.TemplateID != 0 {
		generate = w.gen.GenerateByTemplate
	}
	res, err := generate(ctx, job.Request)
	if err != nil {
		w.logger.Warn().Err(err).Str("request_id", job.RequestID).Msg("Generation request failed")
		return model.GenerateJobResult{RequestID: job.RequestID, Error: err.Error(), ProcessedAt: w.now()}
	}
	return model.GenerateJobResult{RequestID: job.RequestID, Success: true, Result: &res, ProcessedAt: w.now()}
}

func (w *Worker) startScheduler(ctx context.Context) {
	w.logger.Info().Dur("interval", w.cfg.RefreshInterval).Msg("Template refresh scheduler started")

	ticker := time.NewTicker(w.cfg.RefreshInterval)
	defer ticker.Stop()

	w.RefreshTemplates(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			w.RefreshTemplates(ctx)
		}
	}
}

// RefreshTemplates fetches the catalogue once and stores it. It returns the
// number of templates stored.
func (w *Worker) RefreshTemplates(ctx context.Context) int {
	templates, err := w.source.Fetch(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Template refresh failed")
		return 0
	}
	if len(templates) == 0 {
		return 0
	}
	if err := w.sink.Upsert(ctx, templates...); err != nil {
		w.logger.Error().Err(err).Msg("Failed to store refreshed templates")
		return 0
	}
	w.logger.Info().Int("count", len(templates)).Msg("Templates refreshed")
	return len(templates)
}

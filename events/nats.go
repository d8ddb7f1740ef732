// Package events publishes meme lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"meme-service/metrics"
	"meme-service/model"
)

const (
	Source  = "meme-service"
	Version = "1.0"

	SubjectPrefix   = "memes."
	SubjectGenerate = "memes.generate"
	SubjectResult   = "memes.generate.result"
)

// Subject returns the subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// Connect dials NATS, retrying with exponential backoff until timeout.
func Connect(ctx context.Context, url string, timeout time.Duration, logger zerolog.Logger) (*nats.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout

	var nc *nats.Conn
	op := func() error {
		conn, err := nats.Connect(url, nats.Name(Source))
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("NATS not reachable yet")
			return err
		}
		nc = conn
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	logger.Info().Str("url", url).Msg("Connected to NATS")
	return nc, nil
}

// Stamp fills the envelope fields of e that are still empty.
func Stamp(e model.MemeEvent, now time.Time) model.MemeEvent {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Source == "" {
		e.Source = Source
	}
	if e.Version == "" {
		e.Version = Version
	}
	return e
}

// NATSPublisher sends events as JSON on memes.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn *nats.Conn, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger}
}

// Publish stamps and sends e.
func (p *NATSPublisher) Publish(_ context.Context, e model.MemeEvent) error {
	e = Stamp(e, time.Now())
	subject := Subject(e.Type)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.conn.Publish(subject, data)
	metrics.NatsMessagesPublished.WithLabelValues(subject, metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug().
		Str("subject", subject).
		Int64("meme_id", e.MemeID).
		Str("event_id", e.ID).
		Msg("Published meme event")
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// Noop discards events. It is used when NATS is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, model.MemeEvent) error { return nil }

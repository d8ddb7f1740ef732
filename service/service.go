// Package service implements the meme and template APIs on top of the
// repositories.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meme-service/events"
	"meme-service/model"
	"meme-service/utils"
)

// Publisher sends meme lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e model.MemeEvent) error
}

// Library receives the memes generated, deleted and favorited through the
// API.
type Library interface {
	Add(ctx context.Context, m model.Meme) error
	Remove(ctx context.Context, id int64) error
	ToggleFavorite(ctx context.Context, id int64, on bool) error
	Update(ctx context.Context, id int64, u model.MemeUpdate) error
}

// Latency holds the artificial delays applied before each call returns.
type Latency struct {
	Generate time.Duration
	List     time.Duration
	Detail   time.Duration
	Hot      time.Duration
}

// SimulatedLatency mirrors the response times of the mock backend the
// mini-program was built against.
var SimulatedLatency = Latency{
	Generate: 2 * time.Second,
	List:     500 * time.Millisecond,
	Detail:   300 * time.Millisecond,
	Hot:      300 * time.Millisecond,
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IDGenerator hands out millisecond timestamps, bumped so that ids are
// strictly increasing even within the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator driven by now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns the next id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// PlaceholderURL builds the image url for a generated meme.
func PlaceholderURL(style model.Style, text string) string {
	color, ok := utils.StyleColors[style]
	if !ok {
		color = utils.StyleColors[model.StyleFunny]
	}
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("%s/%s/%s/%s?text=%s",
		utils.PlaceholderBase, utils.PlaceholderSize, color, utils.PlaceholderColor, escaped)
}

// Options are the optional collaborators of the services.
type Options struct {
	Library   Library
	Publisher Publisher
	Latency   Latency
	// Clock stamps generated memes and drives id generation.
	Clock  func() time.Time
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = events.Noop{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

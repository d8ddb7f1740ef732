package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/library"
	"meme-service/model"
	"meme-service/repository/memory"
	"meme-service/repository/repotest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.MemeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.MemeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	memes     *memory.Memes
	templates *memory.Templates
	library   *library.Store
	pub       *recordingPublisher
	svc       *MemeService
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := func() time.Time { return repotest.Now }
	f := fixture{
		memes:     memory.NewMemes(repotest.SeedMemes()).WithClock(clock),
		templates: memory.NewTemplates(repotest.SeedTemplates()),
		library:   library.New(zerolog.Nop()),
		pub:       &recordingPublisher{},
	}
	f.svc = NewMemeService(f.memes, f.templates, Options{
		Library:   f.library,
		Publisher: f.pub,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	})
	return f
}

func TestGenerateByText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.GenerateByText(ctx, model.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	_, err = f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "x", Style: "weird"})
	assert.True(t, model.IsValidation(err))

	res, err := f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "今天 好累"})
	require.NoError(t, err)
	assert.Equal(t, model.StyleFunny, res.Meme.Style)
	assert.Equal(t, repotest.Now, res.Meme.CreatedAt)
	assert.Nil(t, res.Meme.TemplateID)
	assert.Contains(t, res.Meme.ImageURL, "%20")
	assert.GreaterOrEqual(t, res.Duration, 0.0)

	stored, err := f.memes.Get(ctx, res.Meme.ID)
	require.NoError(t, err)
	assert.Equal(t, "今天 好累", stored.Text)
	assert.Equal(t, res.Meme.ID, f.library.Mine()[0].ID)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, model.EventMemeGenerated, f.pub.events[0].Type)
	assert.Equal(t, res.Meme.ID, f.pub.events[0].MemeID)

	second, err := f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "again", Style: model.StyleSad})
	require.NoError(t, err)
	assert.Greater(t, second.Meme.ID, res.Meme.ID)
	assert.Equal(t, model.StyleSad, second.Meme.Style)
}

func TestGenerateByTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.GenerateByTemplate(ctx, model.GenerateRequest{Text: "x", TemplateID: 99})
	assert.True(t, model.IsNotFound(err))

	_, err = f.svc.GenerateByTemplate(ctx, model.GenerateRequest{Text: "x"})
	assert.True(t, model.IsValidation(err))

	res, err := f.svc.GenerateByTemplate(ctx, model.GenerateRequest{Text: "plain", TemplateText: "模板文字", TemplateID: 4})
	require.NoError(t, err)
	assert.Equal(t, "模板文字", res.Meme.Text)
	assert.Equal(t, model.StyleCute, res.Meme.Style)
	require.NotNil(t, res.Meme.TemplateID)
	assert.Equal(t, int64(4), *res.Meme.TemplateID)

	tpl, err := f.templates.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1001, tpl.UseCount)

	res, err = f.svc.GenerateByTemplate(ctx, model.GenerateRequest{Text: "plain", TemplateID: 4})
	require.NoError(t, err)
	assert.Equal(t, "plain", res.Meme.Text)
}

func TestSetFavoriteAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "收藏我"})
	require.NoError(t, err)
	id := res.Meme.ID

	m, err := f.svc.SetFavorite(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, m.IsFavorite)
	assert.Equal(t, 1, m.FavoriteCount)
	assert.Len(t, f.library.Favorites(), 1)
	assertLibraryCopy(t, f.library, m)

	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, model.EventMemeFavorited, last.Type)
	require.NotNil(t, last.Favorite)
	assert.True(t, *last.Favorite)

	_, err = f.svc.SetFavorite(ctx, 12345, true)
	assert.True(t, model.IsNotFound(err))

	require.NoError(t, f.svc.Delete(ctx, id))
	require.NoError(t, f.svc.Delete(ctx, id))
	_, err = f.svc.Get(ctx, id)
	assert.True(t, model.IsNotFound(err))
	assert.Empty(t, f.library.Favorites())
	assert.Equal(t, model.EventMemeDeleted, f.pub.events[len(f.pub.events)-1].Type)
}

func assertLibraryCopy(t *testing.T, lib *library.Store, want model.Meme) {
	t.Helper()
	for _, got := range lib.Mine() {
		if got.ID == want.ID {
			assert.Equal(t, want.IsFavorite, got.IsFavorite)
			assert.Equal(t, want.FavoriteCount, got.FavoriteCount)
			return
		}
	}
	t.Fatalf("meme %d not in library", want.ID)
}

func TestSetFavoriteKeepsLibraryCountInSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "同步"})
	require.NoError(t, err)
	id := res.Meme.ID

	m, err := f.svc.SetFavorite(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, 1, m.FavoriteCount)
	assertLibraryCopy(t, f.library, m)
	assert.Equal(t, 1, f.library.History()[0].FavoriteCount)

	// repeated favorite is not a flip
	m, err = f.svc.SetFavorite(ctx, id, true)
	require.NoError(t, err)
	assertLibraryCopy(t, f.library, m)

	m, err = f.svc.SetFavorite(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, 0, m.FavoriteCount)
	assertLibraryCopy(t, f.library, m)
	assert.Empty(t, f.library.Favorites())
}

func TestPublishFailureDoesNotFailCall(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("nats down")

	_, err := f.svc.GenerateByText(context.Background(), model.GenerateRequest{Text: "ok"})
	assert.NoError(t, err)
}

func TestListAndSimilar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.List(ctx, model.MemeListParams{OnlyFavorite: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	similar, err := f.svc.Similar(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, similar, 3)
}

func TestLatencyHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.svc.opts.Latency = Latency{Generate: time.Hour, List: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.svc.GenerateByText(ctx, model.GenerateRequest{Text: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = f.svc.List(ctx, model.MemeListParams{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, len(f.library.Mine()))
}

func TestIDGeneratorIsStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := NewIDGenerator(func() time.Time { return fixed })

	a, b, c := g.Next(), g.Next(), g.Next()
	assert.Equal(t, fixed.UnixMilli(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestPlaceholderURL(t *testing.T) {
	u := PlaceholderURL(model.StyleCute, "加油 打工人")
	assert.True(t, strings.HasPrefix(u, "https://via.placeholder.com/400x400/10B981/FFFFFF?text="))
	assert.NotContains(t, u, "+")
	assert.NotContains(t, u, " ")
}

func TestTemplateService(t *testing.T) {
	ctx := context.Background()
	svc := NewTemplateService(memory.NewTemplates(repotest.SeedTemplates()), Options{Logger: zerolog.Nop()})

	hot, err := svc.Hot(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, hot, 3)
	assert.Equal(t, int64(3), hot[0].ID)

	similar, err := svc.Similar(ctx, 99, 0)
	require.NoError(t, err)
	assert.Empty(t, similar)

	_, err = svc.Get(ctx, 99)
	assert.True(t, model.IsNotFound(err))

	res, err := svc.List(ctx, model.TemplateListParams{Category: model.CategoryWork})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	cats := svc.Categories()
	require.Len(t, cats, 5)
	assert.Equal(t, model.CategoryAll, cats[0].Value)
	assert.Equal(t, "全部", cats[0].Label)
}

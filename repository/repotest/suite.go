// Package repotest is a compliance suite run against every repository
// implementation. Implementations provide clean repositories seeded with the
// records passed to the constructor.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/model"
	"meme-service/repository"
)

// Now is the clock the suite expects repositories to use for time windows.
var Now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// SeedMemes are the memes handed to makeMemes, newest first.
func SeedMemes() []model.Meme {
	day := 24 * time.Hour
	return []model.Meme{
		{ID: 1, Text: "今天好累", Style: model.StyleFunny, CreatedAt: Now, LikeCount: 128, FavoriteCount: 56},
		{ID: 2, Text: "加油打工人", Style: model.StyleCute, CreatedAt: Now.Add(-day), IsFavorite: true, LikeCount: 256, FavoriteCount: 89},
		{ID: 3, Text: "我要下班", Style: model.StyleSerious, CreatedAt: Now.Add(-12 * day), LikeCount: 89, FavoriteCount: 0},
		{ID: 4, Text: "周末快乐", Style: model.StyleHappy, CreatedAt: Now.Add(-45 * day), IsFavorite: true, LikeCount: 512, FavoriteCount: 156},
	}
}

// SeedTemplates are the templates handed to makeTemplates.
func SeedTemplates() []model.Template {
	day := 24 * time.Hour
	return []model.Template{
		{ID: 1, Name: "工作累", Description: "表达工作疲惫的经典模板", Category: model.CategoryWork, Styles: []model.Style{model.StyleFunny, model.StyleSerious}, UseCount: 1234, CreatedAt: Now, IsHot: true},
		{ID: 2, Name: "加油打工人", Description: "鼓励打工人继续努力的模板", Category: model.CategoryWork, Styles: []model.Style{model.StyleCute, model.StyleHappy}, UseCount: 2345, CreatedAt: Now.Add(-day), IsHot: true},
		{ID: 3, Name: "周末快乐", Description: "庆祝周末的模板", Category: model.CategoryLife, Styles: []model.Style{model.StyleHappy, model.StyleCute}, UseCount: 4567, CreatedAt: Now.Add(-3 * day), IsHot: true},
		{ID: 4, Name: "心情不好", Description: "表达低落情绪的模板", Category: model.CategoryEmotion, Styles: []model.Style{model.StyleSad}, UseCount: 1000, CreatedAt: Now.Add(-4 * day)},
	}
}

func memeIDs(items []model.Meme) []int64 {
	out := make([]int64, 0, len(items))
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}

func templateIDs(items []model.Template) []int64 {
	out := make([]int64, 0, len(items))
	for _, t := range items {
		out = append(out, t.ID)
	}
	return out
}

// RunMemes exercises a repository.Memes implementation.
func RunMemes(t *testing.T, makeMemes func(t *testing.T, seed []model.Meme) repository.Memes) {
	t.Helper()
	ctx := context.Background()

	t.Run("pagination", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())
		res, err := r.List(ctx, model.MemeListParams{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 4}, memeIDs(res.List))
		assert.Equal(t, 4, res.Total)
		assert.Equal(t, 2, res.Page)
		assert.Equal(t, 2, res.PageSize)

		res, err = r.List(ctx, model.MemeListParams{Page: 5, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, res.List)
		assert.Equal(t, 4, res.Total)

		res, err = r.List(ctx, model.MemeListParams{Page: 1<<32 + 1, PageSize: 1 << 32})
		require.NoError(t, err)
		assert.Empty(t, res.List)
		assert.Equal(t, 4, res.Total)
	})

	t.Run("filters", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())

		res, err := r.List(ctx, model.MemeListParams{OnlyFavorite: true})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 4}, memeIDs(res.List))

		res, err = r.List(ctx, model.MemeListParams{Style: model.StyleCute})
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, memeIDs(res.List))

		res, err = r.List(ctx, model.MemeListParams{TimeRange: model.TimeRange7Days})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, memeIDs(res.List))

		res, err = r.List(ctx, model.MemeListParams{TimeRange: model.TimeRange30Days})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, memeIDs(res.List))

		res, err = r.List(ctx, model.MemeListParams{Keyword: "打工"})
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, memeIDs(res.List))

		res, err = r.List(ctx, model.MemeListParams{Sort: model.SortHot, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 2}, memeIDs(res.List))
		assert.Equal(t, 4, res.Total)
	})

	t.Run("get", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())
		m, err := r.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "加油打工人", m.Text)

		_, err = r.Get(ctx, 99)
		require.Error(t, err)
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("insert and delete", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())
		tpl := int64(3)
		fresh := model.Meme{ID: 10, Text: "新的", Style: model.StyleSad, TemplateID: &tpl, CreatedAt: Now.Add(time.Minute)}
		require.NoError(t, r.Insert(ctx, fresh))

		res, err := r.List(ctx, model.MemeListParams{})
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 1, 2, 3, 4}, memeIDs(res.List))

		got, err := r.Get(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, got.TemplateID)
		assert.Equal(t, int64(3), *got.TemplateID)

		require.NoError(t, r.Delete(ctx, 99))
		res, err = r.List(ctx, model.MemeListParams{})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Total)

		require.NoError(t, r.Delete(ctx, 2))
		_, err = r.Get(ctx, 2)
		assert.True(t, model.IsNotFound(err))
		res, err = r.List(ctx, model.MemeListParams{OnlyFavorite: true})
		require.NoError(t, err)
		assert.Equal(t, []int64{4}, memeIDs(res.List))
	})

	t.Run("favorite toggling", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())

		m, err := r.SetFavorite(ctx, 1, true)
		require.NoError(t, err)
		assert.True(t, m.IsFavorite)
		assert.Equal(t, 57, m.FavoriteCount)

		// already favorited: nothing changes
		m, err = r.SetFavorite(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, 57, m.FavoriteCount)

		m, err = r.SetFavorite(ctx, 1, false)
		require.NoError(t, err)
		assert.False(t, m.IsFavorite)
		assert.Equal(t, 56, m.FavoriteCount)

		// saturates at zero
		_, err = r.SetFavorite(ctx, 3, true)
		require.NoError(t, err)
		m, err = r.SetFavorite(ctx, 3, false)
		require.NoError(t, err)
		assert.Equal(t, 0, m.FavoriteCount)

		_, err = r.SetFavorite(ctx, 99, true)
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("similar", func(t *testing.T) {
		r := makeMemes(t, SeedMemes())
		got, err := r.Similar(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, memeIDs(got))
	})
}

// RunTemplates exercises a repository.Templates implementation.
func RunTemplates(t *testing.T, makeTemplates func(t *testing.T, seed []model.Template) repository.Templates) {
	t.Helper()
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		r := makeTemplates(t, SeedTemplates())

		res, err := r.List(ctx, model.TemplateListParams{})
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2, 1, 4}, templateIDs(res.List))

		res, err = r.List(ctx, model.TemplateListParams{Category: model.CategoryWork, Sort: model.SortLatest})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, templateIDs(res.List))

		res, err = r.List(ctx, model.TemplateListParams{Style: model.StyleCute, PageSize: 1, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, templateIDs(res.List))
		assert.Equal(t, 2, res.Total)

		res, err = r.List(ctx, model.TemplateListParams{Keyword: "情绪"})
		require.NoError(t, err)
		assert.Equal(t, []int64{4}, templateIDs(res.List))

		res, err = r.List(ctx, model.TemplateListParams{Page: 1<<32 + 1, PageSize: 1 << 32})
		require.NoError(t, err)
		assert.Empty(t, res.List)
		assert.Equal(t, 4, res.Total)

		res, err = r.List(ctx, model.TemplateListParams{Keyword: "nothing"})
		require.NoError(t, err)
		assert.Empty(t, res.List)
		assert.Equal(t, 0, res.Total)
	})

	t.Run("get, hot and similar", func(t *testing.T) {
		r := makeTemplates(t, SeedTemplates())

		tpl, err := r.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "周末快乐", tpl.Name)

		_, err = r.Get(ctx, 99)
		assert.True(t, model.IsNotFound(err))

		hot, err := r.Hot(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2}, templateIDs(hot))

		similar, err := r.Similar(ctx, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, templateIDs(similar))

		similar, err = r.Similar(ctx, 99, 4)
		require.NoError(t, err)
		assert.Empty(t, similar)
	})

	t.Run("upsert and use count", func(t *testing.T) {
		r := makeTemplates(t, SeedTemplates())

		require.NoError(t, r.IncrementUse(ctx, 4))
		tpl, err := r.Get(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 1001, tpl.UseCount)

		assert.True(t, model.IsNotFound(r.IncrementUse(ctx, 99)))

		tpl.Name = "心情很差"
		extra := model.Template{ID: 9, Name: "Drake", Category: model.CategoryLife, Styles: []model.Style{model.StyleFunny}, CreatedAt: Now}
		require.NoError(t, r.Upsert(ctx, tpl, extra))

		got, err := r.Get(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, "心情很差", got.Name)
		res, err := r.List(ctx, model.TemplateListParams{})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Total)
	})

	t.Run("refresh keeps usage", func(t *testing.T) {
		r := makeTemplates(t, SeedTemplates())

		before, err := r.Get(ctx, 1)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			require.NoError(t, r.IncrementUse(ctx, 1))
		}

		refreshed := model.Template{
			ID:        1,
			Name:      "refreshed",
			ImageURL:  "https://i.imgflip.com/refreshed.jpg",
			Category:  before.Category,
			Styles:    []model.Style{model.StyleFunny},
			CreatedAt: Now.Add(time.Hour),
			IsHot:     true,
		}
		require.NoError(t, r.Upsert(ctx, refreshed))

		got, err := r.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", got.Name)
		assert.Equal(t, "https://i.imgflip.com/refreshed.jpg", got.ImageURL)
		assert.True(t, got.IsHot)
		assert.Equal(t, []model.Style{model.StyleFunny}, got.Styles)
		assert.Equal(t, before.UseCount+5, got.UseCount)
		assert.Equal(t, before.FavoriteCount, got.FavoriteCount)
		assert.True(t, before.CreatedAt.Equal(got.CreatedAt))
	})
}

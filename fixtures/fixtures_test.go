package fixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/model"
)

func TestMemes(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	memes, err := Memes(now)
	require.NoError(t, err)
	require.Len(t, memes, 4)

	assert.Equal(t, int64(1), memes[0].ID)
	assert.Equal(t, now, memes[0].CreatedAt)
	assert.Equal(t, now.Add(-24*time.Hour), memes[1].CreatedAt)
	assert.True(t, memes[1].IsFavorite)

	seen := map[int64]bool{}
	for _, m := range memes {
		assert.True(t, m.Style.Valid(), "meme %d style %q", m.ID, m.Style)
		assert.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
}

func TestTemplates(t *testing.T) {
	now := time.Now()
	templates, err := Templates(now)
	require.NoError(t, err)
	require.Len(t, templates, 8)

	hot := 0
	for _, tpl := range templates {
		assert.NotEqual(t, model.CategoryAll, tpl.Category)
		assert.NotEmpty(t, tpl.Styles)
		if tpl.IsHot {
			hot++
		}
	}
	assert.Equal(t, 5, hot)
	assert.Equal(t, []model.Style{model.StyleFunny, model.StyleSerious}, templates[0].Styles)
	assert.Equal(t, now.Add(-168*time.Hour), templates[7].CreatedAt)
}

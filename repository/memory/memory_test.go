package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-service/model"
	"meme-service/repository"
	"meme-service/repository/repotest"
)

func TestMemes_Suite(t *testing.T) {
	repotest.RunMemes(t, func(t *testing.T, seed []model.Meme) repository.Memes {
		return NewMemes(seed).WithClock(func() time.Time { return repotest.Now })
	})
}

func TestTemplates_Suite(t *testing.T) {
	repotest.RunTemplates(t, func(t *testing.T, seed []model.Template) repository.Templates {
		return NewTemplates(seed)
	})
}

func TestMemes_InsertDuplicateIsConflict(t *testing.T) {
	r := NewMemes(repotest.SeedMemes())

	err := r.Insert(context.Background(), model.Meme{ID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, 4, r.Len())
}

func TestMemes_SeedIsCopied(t *testing.T) {
	seed := repotest.SeedMemes()
	r := NewMemes(seed)

	_, err := r.SetFavorite(context.Background(), 1, true)
	require.NoError(t, err)
	assert.False(t, seed[0].IsFavorite)
}

func TestTemplates_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	r := NewTemplates(repotest.SeedTemplates())

	got, err := r.Get(ctx, 2)
	require.NoError(t, err)
	require.NotEmpty(t, got.Styles)
	want := got.Styles[0]
	got.Styles[0] = "tampered"

	res, err := r.List(ctx, model.TemplateListParams{})
	require.NoError(t, err)
	for i := range res.List {
		res.List[i].Styles = append(res.List[i].Styles[:0], "tampered")
	}
	hot, err := r.Hot(ctx, 10)
	require.NoError(t, err)
	for i := range hot {
		if len(hot[i].Styles) > 0 {
			hot[i].Styles[0] = "tampered"
		}
	}

	again, err := r.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, want, again.Styles[0])
}

func TestMemes_TemplateIDIsCopied(t *testing.T) {
	ctx := context.Background()
	r := NewMemes(nil)
	templateID := int64(7)
	require.NoError(t, r.Insert(ctx, model.Meme{ID: 1, TemplateID: &templateID}))
	templateID = 8

	got, err := r.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.TemplateID)
	assert.Equal(t, int64(7), *got.TemplateID)

	*got.TemplateID = 9
	again, err := r.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *again.TemplateID)
}

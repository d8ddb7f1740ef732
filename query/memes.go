package query

import (
	"time"

	"meme-service/model"
)

func memeCreatedAt(m model.Meme) time.Time { return m.CreatedAt }
func memeText(m model.Meme) string         { return m.Text }

// MemeSpec translates list parameters into a Spec. now anchors the time
// window filter.
func MemeSpec(p model.MemeListParams, now time.Time) Spec[model.Meme] {
	spec := Spec[model.Meme]{Page: p.Page, PageSize: p.PageSize}

	if window, ok := p.TimeRange.Window(); ok {
		spec.Where(CreatedAfter(now.Add(-window), memeCreatedAt))
	}
	if p.Style != "" {
		style := p.Style
		spec.Where(func(m model.Meme) bool { return m.Style == style })
	}
	if p.OnlyFavorite {
		spec.Where(func(m model.Meme) bool { return m.IsFavorite })
	}
	if p.Keyword != "" {
		spec.Where(Contains(p.Keyword, memeText))
	}

	switch p.Sort {
	case model.SortHot:
		spec.Compare = Descending(func(m model.Meme) int { return m.LikeCount })
	case model.SortLatest:
		spec.Compare = NewestFirst(memeCreatedAt)
	}
	return spec
}

// ListMemes runs a meme listing over items.
func ListMemes(items []model.Meme, p model.MemeListParams, now time.Time) model.ListResponse[model.Meme] {
	return Run(items, MemeSpec(p, now))
}

// SimilarMemes returns up to limit memes other than id, in input order.
func SimilarMemes(items []model.Meme, id int64, limit int) []model.Meme {
	return Limit(Filter(items, func(m model.Meme) bool { return m.ID != id }), limit)
}

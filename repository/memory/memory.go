// Package memory keeps memes and templates in process memory. It backs the
// development server and the tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"meme-service/model"
	"meme-service/query"
)

// cloneAll deep-copies records crossing the repository boundary so callers
// never alias the stored values.
func cloneAll[T any](items []T, clone func(T) T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = clone(it)
	}
	return out
}

// Memes is an in-memory repository.Memes. Records are kept newest first.
type Memes struct {
	mu    sync.RWMutex
	items []model.Meme
	now   func() time.Time
}

// NewMemes returns a repository seeded with items, kept in the given order.
func NewMemes(items []model.Meme) *Memes {
	return &Memes{items: cloneAll(items, model.Meme.Clone), now: time.Now}
}

// WithClock replaces the clock used for time window filters.
func (r *Memes) WithClock(now func() time.Time) *Memes {
	r.now = now
	return r
}

func (r *Memes) indexOf(id int64) int {
	return slices.IndexFunc(r.items, func(m model.Meme) bool { return m.ID == id })
}

func (r *Memes) List(_ context.Context, p model.MemeListParams) (model.ListResponse[model.Meme], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := query.ListMemes(r.items, p, r.now())
	res.List = cloneAll(res.List, model.Meme.Clone)
	return res, nil
}

func (r *Memes) Get(_ context.Context, id int64) (model.Meme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.items[i].Clone(), nil
	}
	return model.Meme{}, model.NewNotFoundError("meme", id)
}

func (r *Memes) Insert(_ context.Context, m model.Meme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(m.ID) >= 0 {
		return fmt.Errorf("meme %d already exists: %w", m.ID, model.ErrConflict)
	}
	r.items = slices.Insert(r.items, 0, m.Clone())
	return nil
}

func (r *Memes) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		r.items = slices.Delete(r.items, i, i+1)
	}
	return nil
}

func (r *Memes) SetFavorite(_ context.Context, id int64, on bool) (model.Meme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return model.Meme{}, model.NewNotFoundError("meme", id)
	}
	m := &r.items[i]
	if m.IsFavorite != on {
		m.IsFavorite = on
		if on {
			m.FavoriteCount++
		} else {
			m.FavoriteCount = max(m.FavoriteCount-1, 0)
		}
	}
	return m.Clone(), nil
}

func (r *Memes) Similar(_ context.Context, id int64, limit int) ([]model.Meme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(query.SimilarMemes(r.items, id, limit), model.Meme.Clone), nil
}

// Len returns the number of stored memes.
func (r *Memes) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Templates is an in-memory repository.Templates.
type Templates struct {
	mu    sync.RWMutex
	items []model.Template
}

// NewTemplates returns a repository seeded with items.
func NewTemplates(items []model.Template) *Templates {
	return &Templates{items: cloneAll(items, model.Template.Clone)}
}

func (r *Templates) indexOf(id int64) int {
	return slices.IndexFunc(r.items, func(t model.Template) bool { return t.ID == id })
}

func (r *Templates) List(_ context.Context, p model.TemplateListParams) (model.ListResponse[model.Template], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := query.ListTemplates(r.items, p)
	res.List = cloneAll(res.List, model.Template.Clone)
	return res, nil
}

func (r *Templates) Get(_ context.Context, id int64) (model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.items[i].Clone(), nil
	}
	return model.Template{}, model.NewNotFoundError("template", id)
}

func (r *Templates) Hot(_ context.Context, limit int) ([]model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(query.HotTemplates(r.items, limit), model.Template.Clone), nil
}

func (r *Templates) Similar(_ context.Context, id int64, limit int) ([]model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(query.SimilarTemplates(r.items, id, limit), model.Template.Clone), nil
}

// Upsert refreshes the catalogue fields of known templates and appends
// unknown ones. Usage counters and creation time of known templates are
// kept.
func (r *Templates) Upsert(_ context.Context, templates ...model.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range templates {
		t = t.Clone()
		if i := r.indexOf(t.ID); i >= 0 {
			old := r.items[i]
			t.UseCount = old.UseCount
			t.FavoriteCount = old.FavoriteCount
			t.CreatedAt = old.CreatedAt
			r.items[i] = t
			continue
		}
		r.items = append(r.items, t)
	}
	return nil
}

func (r *Templates) IncrementUse(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return model.NewNotFoundError("template", id)
	}
	r.items[i].UseCount++
	return nil
}

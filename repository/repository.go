// Package repository defines the persistence contracts behind the meme and
// template APIs. Implementations live under repository/<driver>/.
package repository

import (
	"context"

	"meme-service/model"
)

// Memes stores generated memes.
type Memes interface {
	List(ctx context.Context, p model.MemeListParams) (model.ListResponse[model.Meme], error)
	// Get returns a model.NotFoundError when the id is unknown.
	Get(ctx context.Context, id int64) (model.Meme, error)
	Insert(ctx context.Context, m model.Meme) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id int64) error
	// SetFavorite changes the flag and adjusts the favorite count only when
	// the flag actually flips. The count never drops below zero.
	SetFavorite(ctx context.Context, id int64, on bool) (model.Meme, error)
	// Similar returns up to limit memes other than id.
	Similar(ctx context.Context, id int64, limit int) ([]model.Meme, error)
}

// Templates stores the template catalogue.
type Templates interface {
	List(ctx context.Context, p model.TemplateListParams) (model.ListResponse[model.Template], error)
	Get(ctx context.Context, id int64) (model.Template, error)
	Hot(ctx context.Context, limit int) ([]model.Template, error)
	Similar(ctx context.Context, id int64, limit int) ([]model.Template, error)
	// Upsert replaces templates by id, inserting unknown ones.
	Upsert(ctx context.Context, templates ...model.Template) error
	IncrementUse(ctx context.Context, id int64) error
}

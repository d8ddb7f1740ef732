package query

import (
	"slices"
	"time"

	"meme-service/model"
)

func templateCreatedAt(t model.Template) time.Time { return t.CreatedAt }
func templateUseCount(t model.Template) int        { return t.UseCount }

// TemplateSpec translates list parameters into a Spec. Without an explicit
// sort the templates are ordered by use count.
func TemplateSpec(p model.TemplateListParams) Spec[model.Template] {
	spec := Spec[model.Template]{Page: p.Page, PageSize: p.PageSize}

	if p.Category != "" && p.Category != model.CategoryAll {
		category := p.Category
		spec.Where(func(t model.Template) bool { return t.Category == category })
	}
	if p.Style != "" {
		style := p.Style
		spec.Where(func(t model.Template) bool { return t.HasStyle(style) })
	}
	if p.Keyword != "" {
		spec.Where(Contains(p.Keyword,
			func(t model.Template) string { return t.Name },
			func(t model.Template) string { return t.Description },
		))
	}

	switch p.Sort {
	case model.SortLatest:
		spec.Compare = NewestFirst(templateCreatedAt)
	default:
		spec.Compare = Descending(templateUseCount)
	}
	return spec
}

// ListTemplates runs a template listing over items.
func ListTemplates(items []model.Template, p model.TemplateListParams) model.ListResponse[model.Template] {
	return Run(items, TemplateSpec(p))
}

// HotTemplates returns up to limit hot templates, most used first.
func HotTemplates(items []model.Template, limit int) []model.Template {
	hot := Filter(items, func(t model.Template) bool { return t.IsHot })
	slices.SortStableFunc(hot, Descending(templateUseCount))
	return Limit(hot, limit)
}

// SimilarTemplates returns up to limit templates sharing the category of the
// template with the given id. An unknown id yields an empty list.
func SimilarTemplates(items []model.Template, id int64, limit int) []model.Template {
	var current *model.Template
	for i := range items {
		if items[i].ID == id {
			current = &items[i]
			break
		}
	}
	if current == nil {
		return []model.Template{}
	}
	category := current.Category
	return Limit(Filter(items, func(t model.Template) bool {
		return t.ID != id && t.Category == category
	}), limit)
}

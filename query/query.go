// Package query implements the list routine shared by the meme and
// template listings: conjunctive filtering, optional stable sort and
// 1-based pagination over an in-memory collection.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"meme-service/model"
)

// Predicate reports whether a record passes one filter.
type Predicate[T any] func(T) bool

// Spec describes one listing request. A nil Compare keeps the input order.
type Spec[T any] struct {
	Filters  []Predicate[T]
	Compare  func(a, b T) int
	Page     int
	PageSize int
}

// Where appends a filter.
func (s *Spec[T]) Where(p Predicate[T]) *Spec[T] {
	s.Filters = append(s.Filters, p)
	return s
}

// Run filters, sorts and paginates items. The input slice is not modified.
// Pages past the end yield an empty list; Total always counts the filtered
// records before pagination.
func Run[T any](items []T, spec Spec[T]) model.ListResponse[T] {
	page, pageSize := model.NormalizePage(spec.Page, spec.PageSize)

	filtered := Filter(items, spec.Filters...)
	if spec.Compare != nil {
		slices.SortStableFunc(filtered, spec.Compare)
	}

	return model.ListResponse[T]{
		List:     Paginate(filtered, page, pageSize),
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
	}
}

// Filter returns a new slice with the items that satisfy every predicate,
// in their original order.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range preds {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Paginate returns items[(page-1)*pageSize : (page-1)*pageSize+pageSize]
// clamped to the slice bounds. page and pageSize must already be >= 1.
func Paginate[T any](items []T, page, pageSize int) []T {
	start, ok := model.PageOffset(page, pageSize)
	if !ok || start >= len(items) {
		return []T{}
	}
	end := start + min(pageSize, len(items)-start)
	return slices.Clone(items[start:end])
}

// Limit returns at most n leading items; n <= 0 yields an empty slice.
func Limit[T any](items []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	return slices.Clone(items[:min(n, len(items))])
}

// Descending orders by a numeric key, largest first.
func Descending[T any, K cmp.Ordered](key func(T) K) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(key(b), key(a))
	}
}

// NewestFirst orders by a timestamp, most recent first.
func NewestFirst[T any](at func(T) time.Time) func(a, b T) int {
	return func(a, b T) int {
		return at(b).Compare(at(a))
	}
}

// CreatedAfter keeps records created strictly after cutoff.
func CreatedAfter[T any](cutoff time.Time, at func(T) time.Time) Predicate[T] {
	return func(it T) bool {
		return at(it).After(cutoff)
	}
}

// Contains keeps records where any of the fields contains keyword. The match
// is a case-sensitive substring test.
func Contains[T any](keyword string, fields ...func(T) string) Predicate[T] {
	return func(it T) bool {
		for _, f := range fields {
			if strings.Contains(f(it), keyword) {
				return true
			}
		}
		return false
	}
}

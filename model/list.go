package model

import "math"

// Default pagination values applied when a request omits them or sends
// values below 1.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// ListResponse is one page of a filtered listing. Total counts the filtered
// records before pagination.
type ListResponse[T any] struct {
	List     []T `json:"list"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// TotalPages is ceil(Total / PageSize).
func (r ListResponse[T]) TotalPages() int {
	if r.PageSize <= 0 {
		return 0
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// NormalizePage replaces missing or invalid page parameters with defaults.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// PageOffset returns the index of the first record on page. ok is false when
// the offset does not fit in an int, which no collection can reach.
func PageOffset(page, pageSize int) (offset int, ok bool) {
	if page < 1 || pageSize < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}

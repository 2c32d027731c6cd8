package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

// MaxPerPage caps the page size accepted from callers.
const MaxPerPage = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 20,
		Offset:  0,
	}
}

// New builds Params from raw values, falling back to defaults for anything
// out of range.
func New(page, perPage int) Params {
	p := DefaultParams()
	if page > 0 {
		p.Page = page
	}
	if perPage > 0 && perPage <= MaxPerPage {
		p.PerPage = perPage
	}
	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// FromRequest extracts pagination parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	return FromValues(r.URL.Query())
}

// FromValues extracts pagination parameters from query values.
func FromValues(q url.Values) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return New(page, perPage)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := totalCount / params.PerPage
	if totalCount%params.PerPage > 0 {
		totalPages++
	}
	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Slice pages through an in-memory list. The LMS API returns full course
// lists, so paging happens on the client side.
func Slice[T any](items []T, params Params) Result[T] {
	start := params.Offset
	if start > len(items) {
		start = len(items)
	}
	end := start + params.PerPage
	if end > len(items) {
		end = len(items)
	}
	return NewResult(items[start:end], len(items), params)
}

// internal/api/types/response.go
package types

import (
	"net/url"
	"strconv"
)

// Paging bounds for list endpoints.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a limit/offset window parsed from a query string.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from q. Missing or malformed values fall
// back to the defaults; limit is clamped to MaxPageLimit.
func ParsePage(q url.Values) Page {
	p := Page{Limit: DefaultPageLimit}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		p.Limit = min(limit, MaxPageLimit)
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		p.Offset = offset
	}
	return p
}

// PaginatedResponse wraps one page of T with the window that produced it.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

// NewPaginatedResponse builds the envelope for data read through page.
// A nil slice is sent as an empty array.
func NewPaginatedResponse[T any](data []T, page Page, total int64) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{Data: data, Limit: page.Limit, Offset: page.Offset, TotalCount: total}
}

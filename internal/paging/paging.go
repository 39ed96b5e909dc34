// Package paging holds the page/limit arithmetic shared by listing endpoints.
package paging

import "math"

const (
	// DefaultLimit is used when the requested limit is missing or out of range.
	DefaultLimit = 10
	// MaxLimit is the largest page size a caller may request.
	MaxLimit = 50
	// MaxOffset bounds the rows a page may skip, so the offset fits every
	// database's OFFSET.
	MaxOffset = math.MaxInt32 - MaxLimit
)

// Page is a normalized page request.
type Page struct {
	Number int // 1-based
	Limit  int
}

// Normalize clamps a raw page request: pages below 1 become 1, limits
// outside 1..MaxLimit become DefaultLimit, and pages whose offset would pass
// MaxOffset become the last page that does not.
func Normalize(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if maxPage := MaxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return Page{Number: page, Limit: limit}
}

// Offset is the number of rows to skip for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// TotalPages is ceil(total/limit); zero rows means zero pages.
func (p Page) TotalPages(total int64) int64 {
	if total <= 0 {
		return 0
	}
	limit := int64(p.Limit)
	return (total + limit - 1) / limit
}

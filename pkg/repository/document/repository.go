// Package document defines store-neutral query options for document
// collections and a MongoDB executor that runs them.
package document

import (
	"math"
	"strings"
)

// Filter represents field-based filtering criteria for document stores.
type Filter map[string]interface{}

// Sort specifies field and direction for sorting results.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder returns SortAsc only for "asc" (case-insensitive) and
// SortDesc for anything else, including the empty string.
func ParseSortOrder(raw string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(raw))) == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// Pagination specifies page-based pagination. Pages are 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the number of documents skipped before the page. Pages
// too far out for int64 saturate so the window end still fits.
func (p Pagination) Offset() int64 {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	size := int64(p.PageSize)
	highest := math.MaxInt64 - size
	if int64(p.Page-1) > highest/size {
		return highest
	}
	return int64(p.Page-1) * size
}

// Window returns the half-open index range [start, end) of the page.
func (p Pagination) Window() (start, end int64) {
	start = p.Offset()
	return start, start + int64(p.PageSize)
}

// QueryOptions encapsulates filtering, sorting, and pagination options for document queries.
type QueryOptions struct {
	Filter     Filter
	Sort       Sort
	Pagination Pagination
}

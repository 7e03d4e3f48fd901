package model

import (
	"math"
	"strings"
)

const (
	DefaultPage   = 1
	DefaultLimit  = 10
	DefaultSortBy = "created_at"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortColumns lists the summary columns a list may be ordered by.
var SortColumns = []string{"created_at", "updated_at", "upload_date", "last_edited_at", "name"}

// IsSortColumn reports whether c is an allowed sort column.
func IsSortColumn(c string) bool {
	for _, s := range SortColumns {
		if s == c {
			return true
		}
	}
	return false
}

// SummaryFilters selects a page of the summaries catalog.
type SummaryFilters struct {
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	Search    string    `json:"search,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	SortBy    string    `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
}

// Normalize fills defaults and drops values the server would ignore, so that
// equal queries compare equal.
func (f SummaryFilters) Normalize() SummaryFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	f.UserID = strings.TrimSpace(f.UserID)
	if !IsSortColumn(f.SortBy) {
		f.SortBy = DefaultSortBy
	}
	if f.SortOrder != SortAsc {
		f.SortOrder = SortDesc
	}
	return f
}

// Offset is the index of the first row on the page.
func (f SummaryFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return p
}

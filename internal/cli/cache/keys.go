package cache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

const (
	ListPrefix   = "summaries/list/"
	DetailPrefix = "summaries/detail/"
)

// ListKey identifies a catalog page. Filters are normalized first, so equal
// queries share a key however they were built.
func ListKey(f model.SummaryFilters) string {
	f = f.Normalize()
	parts := []string{
		strconv.Itoa(f.Page),
		strconv.Itoa(f.Limit),
		url.QueryEscape(f.Search),
		url.QueryEscape(f.UserID),
		url.QueryEscape(f.SortBy),
		url.QueryEscape(string(f.SortOrder)),
	}
	return ListPrefix + strings.Join(parts, "|")
}

// DetailKey identifies one summary.
func DetailKey(id string) string {
	return DetailPrefix + url.PathEscape(id)
}

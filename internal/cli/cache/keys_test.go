package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
)

func pageFilters(page int) model.SummaryFilters {
	return model.SummaryFilters{Page: page, Limit: 10}
}

func TestListKey_EqualFiltersShareKey(t *testing.T) {
	a := model.SummaryFilters{}
	b := model.SummaryFilters{Page: 1, Limit: 10, Search: "  ", SortBy: "created_at", SortOrder: model.SortDesc}
	if diff := cmp.Diff(ListKey(a), ListKey(b)); diff != "" {
		t.Fatalf("keys differ (-a +b):\n%s", diff)
	}
}

func TestListKey_DistinctFilters(t *testing.T) {
	keys := map[string]model.SummaryFilters{}
	for _, f := range []model.SummaryFilters{
		{Page: 1},
		{Page: 2},
		{Page: 1, Limit: 20},
		{Search: "math"},
		{Search: "math|2"},
		{UserID: "u1"},
		{SortBy: "name"},
		{SortOrder: model.SortAsc},
	} {
		k := ListKey(f)
		if prev, ok := keys[k]; ok {
			t.Fatalf("%+v and %+v share key %q", prev, f, k)
		}
		keys[k] = f
		assert.Contains(t, k, ListPrefix)
	}
}

func TestDetailKey(t *testing.T) {
	assert.Equal(t, DetailPrefix+"abc", DetailKey("abc"))
	assert.Equal(t, DetailPrefix+"a%2Fb", DetailKey("a/b"))
}

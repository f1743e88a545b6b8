package contentrepo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/contentrepo/pkg/contentrepo"
)

type item struct {
	name  string
	score int
}

func names(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.name)
	}
	return out
}

var items = []item{
	{name: "a", score: 3},
	{name: "b", score: 1},
	{name: "c", score: 2},
	{name: "d", score: 1},
	{name: "e", score: 5},
}

func TestCriteria_Apply(t *testing.T) {
	t.Run("FilterKeepsInputOrder", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(it item) bool { return it.score < 3 })
		assert.Equal(t, []string{"b", "c", "d"}, names(c.Apply(items)))
		assert.False(t, c.Ordered())
	})

	t.Run("OrderByIsStable", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(item) bool { return true },
			contentrepo.OrderBy(func(it item) int { return it.score }))
		assert.Equal(t, []string{"b", "d", "c", "a", "e"}, names(c.Apply(items)))
		assert.True(t, c.Ordered())
	})

	t.Run("OrderByDescending", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(item) bool { return true },
			contentrepo.OrderByDescending(func(it item) int { return it.score }))
		assert.Equal(t, []string{"e", "a", "c", "b", "d"}, names(c.Apply(items)))
	})

	t.Run("PageAfterOrdering", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(item) bool { return true },
			contentrepo.OrderBy(func(it item) string { return it.name }),
			contentrepo.WithPage[item](contentrepo.NewPaginationInfo(2, 2)))
		assert.Equal(t, []string{"c", "d"}, names(c.Apply(items)))

		p, ok := c.Page()
		assert.True(t, ok)
		assert.Equal(t, 2, p.PageNumber())
	})

	t.Run("PageBeyondMatches", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(it item) bool { return it.score == 1 },
			contentrepo.WithPage[item](contentrepo.NewPaginationInfo(2, 5)))
		assert.Empty(t, c.Apply(items))
	})

	t.Run("IndexIsInputPosition", func(t *testing.T) {
		c := contentrepo.NewIndexedCriteria(func(_ item, i int) bool { return i%2 == 0 })
		assert.Equal(t, []string{"a", "c", "e"}, names(c.Apply(items)))
	})

	t.Run("InputUntouched", func(t *testing.T) {
		c := contentrepo.NewCriteria(func(item) bool { return true },
			contentrepo.OrderByDescending(func(it item) string { return it.name }))
		c.Apply(items)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names(items))
	})
}

func TestCriteria_Validate(t *testing.T) {
	assert.True(t, contentrepo.NewCriteria(func(item) bool { return true }).Validate().IsSuccess())

	res := contentrepo.NewCriteria[item](nil).Validate()
	assert.True(t, res.IsFailure())
	assert.Equal(t, "Criteria predicate must not be nil.", res.Message())

	res = contentrepo.NewIndexedCriteria[item](nil).Validate()
	assert.True(t, res.IsFailure())

	res = contentrepo.NewCriteria(func(item) bool { return true },
		contentrepo.WithPage[item](contentrepo.NewPaginationInfo(0, 10))).Validate()
	assert.Equal(t, "Page number must be greater than 0.", res.Message())
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlight(t *testing.T) {
	t.Run("wraps whole-word matches", func(t *testing.T) {
		got := Highlight("hello world", "hello")
		assert.Equal(t, `<span class="highlight">hello</span> world`, got)
	})

	t.Run("is case insensitive and keeps original casing", func(t *testing.T) {
		got := Highlight("Hello there, HELLO again", "hello")
		assert.Equal(t, `<span class="highlight">Hello</span> there, <span class="highlight">HELLO</span> again`, got)
	})

	t.Run("ignores short tokens", func(t *testing.T) {
		got := Highlight("hi there", "hi")
		assert.Equal(t, "hi there", got)
	})

	t.Run("short tokens in a longer query are skipped", func(t *testing.T) {
		got := Highlight("say hi to the world", "hi world")
		assert.Equal(t, `say hi to the <span class="highlight">world</span>`, got)
	})

	t.Run("does not match inside words", func(t *testing.T) {
		got := Highlight("worldwide news", "world")
		assert.Equal(t, "worldwide news", got)
	})

	t.Run("escapes regex metacharacters in terms", func(t *testing.T) {
		got := Highlight("cost is 3.50 today", "3.50")
		assert.Contains(t, got, `<span class="highlight">3.50</span>`)
	})

	t.Run("multiple terms highlight independently", func(t *testing.T) {
		got := Highlight("hello big world", "hello world")
		assert.Equal(t,
			`<span class="highlight">hello</span> big <span class="highlight">world</span>`, got)
	})
}

func TestPaginate(t *testing.T) {
	t.Run("95 results at 30 per page give 4 pages", func(t *testing.T) {
		totalPages, hasPrev, hasNext := paginate(95, 4, 30)
		assert.Equal(t, 4, totalPages)
		assert.True(t, hasPrev)
		assert.False(t, hasNext)
	})

	t.Run("first of several pages", func(t *testing.T) {
		totalPages, hasPrev, hasNext := paginate(95, 1, 30)
		assert.Equal(t, 4, totalPages)
		assert.False(t, hasPrev)
		assert.True(t, hasNext)
	})

	t.Run("zero results still report one page", func(t *testing.T) {
		totalPages, hasPrev, hasNext := paginate(0, 1, 30)
		assert.Equal(t, 1, totalPages)
		assert.False(t, hasPrev)
		assert.False(t, hasNext)
	})

	t.Run("exact multiple has no partial page", func(t *testing.T) {
		totalPages, _, _ := paginate(60, 1, 30)
		assert.Equal(t, 2, totalPages)
	})
}

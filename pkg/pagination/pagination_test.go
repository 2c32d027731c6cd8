package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
		offset  int
	}{
		{"", 1, 20, 0},
		{"page=3&per_page=50", 3, 50, 100},
		{"page=-1", 1, 20, 0},
		{"page=abc&per_page=xyz", 1, 20, 0},
		{"per_page=0", 1, 20, 0},
		{"per_page=101", 1, 20, 0},
		{"per_page=100&page=2", 2, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/courses?"+tt.query, nil))
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestFromValues(t *testing.T) {
	p := FromValues(url.Values{"page": {"2"}, "per_page": {"5"}})
	assert.Equal(t, New(2, 5), p)
	assert.Equal(t, 5, p.Offset)
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 45, New(2, 20))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	empty := NewResult[int](nil, 0, DefaultParams())
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	first := Slice(items, New(1, 3))
	assert.Equal(t, []int{1, 2, 3}, first.Data)
	assert.Equal(t, 7, first.TotalCount)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := Slice(items, New(3, 3))
	assert.Equal(t, []int{7}, last.Data)
	assert.False(t, last.HasNext)

	beyond := Slice(items, New(9, 3))
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 7, beyond.TotalCount)
}

package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/cart?page=3&per_page=10", nil)
	p := FromRequest(r)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 20, p.Offset)
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/cart?page=-1&per_page=9999", nil)
	p := FromRequest(r)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
}

func TestNewResult(t *testing.T) {
	params := Params{Page: 2, PerPage: 10, Offset: 10}
	res := NewResult([]string{"a", "b"}, 25, params)

	assert.Equal(t, 25, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.True(t, res.HasPrev)
}

func TestNewResult_NilData(t *testing.T) {
	res := NewResult[string](nil, 0, DefaultParams())
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		params Params
		want   []int
	}{
		{"first page", Params{Page: 1, PerPage: 2, Offset: 0}, []int{1, 2}},
		{"middle page", Params{Page: 2, PerPage: 2, Offset: 2}, []int{3, 4}},
		{"partial last page", Params{Page: 3, PerPage: 2, Offset: 4}, []int{5}},
		{"past the end", Params{Page: 9, PerPage: 2, Offset: 16}, []int{}},
		{"window larger than items", Params{Page: 1, PerPage: 50, Offset: 0}, []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slice(items, tt.params))
		})
	}
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, perPage int
		wantPage, wantPages  int
		wantStart, wantEnd   int
	}{
		{"first page", 12, 1, 5, 1, 3, 0, 5},
		{"last partial page", 12, 3, 5, 3, 3, 10, 12},
		{"page past end clamps", 12, 9, 5, 3, 3, 10, 12},
		{"page below one clamps", 12, -2, 5, 1, 3, 0, 5},
		{"empty set", 0, 4, 10, 1, 0, 0, 0},
		{"zero per page defaults", 25, 2, 0, 2, 3, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, start, end := Paginate(tt.total, tt.page, tt.perPage)
			assert.Equal(t, tt.total, info.TotalCount)
			assert.Equal(t, tt.wantPage, info.CurrentPage)
			assert.Equal(t, tt.wantPages, info.TotalPages)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

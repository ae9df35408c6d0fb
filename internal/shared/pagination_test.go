package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListParamsNormalize(t *testing.T) {
	p := ListParams{}.Normalize()
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)

	require.Equal(t, 0, ListParams{Page: 1, PerPage: 10}.Offset())
	require.Equal(t, 30, ListParams{Page: 4, PerPage: 10}.Offset())
	require.Equal(t, 10, ListParams{Page: 4, PerPage: 10}.Limit())
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(ListParams{Page: 2, PerPage: 10}, 25)
	require.Equal(t, 2, pg.Page)
	require.Equal(t, 25, pg.Total)
	require.Equal(t, 3, pg.TotalPages)

	empty := NewPagination(ListParams{}, 0)
	require.Equal(t, 0, empty.TotalPages)
}

package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromQueryDefaults(t *testing.T) {
	page, err := FromQuery(url.Values{})

	require.NoError(t, err)
	require.Equal(t, Page{From: 0, Size: DefaultSize}, page)
}

func TestFromQueryParses(t *testing.T) {
	page, err := FromQuery(url.Values{"from": {"20"}, "size": {"5"}})

	require.NoError(t, err)
	require.Equal(t, 20, page.Offset())
	require.Equal(t, 5, page.Limit())
}

func TestFromQueryErrors(t *testing.T) {
	cases := []url.Values{
		{"from": {"-1"}},
		{"from": {"abc"}},
		{"size": {"0"}},
		{"size": {"1001"}},
	}
	for _, values := range cases {
		_, err := FromQuery(values)
		require.ErrorIs(t, err, ErrInvalidPage, values.Encode())
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	require.Equal(t, []int{1, 2}, Slice(items, Page{From: 0, Size: 2}))
	require.Equal(t, []int{5}, Slice(items, Page{From: 4, Size: 2}))
	require.Nil(t, Slice(items, Page{From: 10, Size: 2}))
	require.Equal(t, 0, Page{Size: -1}.Limit()-DefaultSize)
}

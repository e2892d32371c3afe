package rwviews

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestPageNumberPaginationLinks(t *testing.T) {
	t.Parallel()

	p := &PageNumberPagination{PageSize: 10}
	qs := make(SliceQueryset[int], 25)

	page, err := p.Paginate(testContext("/items?search=x"), qs)
	require.NoError(t, err)
	require.Equal(t, &Page{Offset: 0, Limit: 10, Count: 25, Next: "http://example.com/items?page=2&search=x"}, page)

	page, err = p.Paginate(testContext("/items?page=2"), qs)
	require.NoError(t, err)
	require.Equal(t, 10, page.Offset)
	require.Equal(t, "http://example.com/items?page=3", page.Next)
	require.Equal(t, "http://example.com/items", page.Previous)

	page, err = p.Paginate(testContext("/items?page=last"), qs)
	require.NoError(t, err)
	require.Equal(t, 20, page.Offset)
	require.Empty(t, page.Next)
	require.Equal(t, "http://example.com/items?page=2", page.Previous)
}

func TestPageNumberPaginationInvalidPages(t *testing.T) {
	t.Parallel()

	p := &PageNumberPagination{PageSize: 10}
	qs := make(SliceQueryset[int], 5)

	for _, target := range []string{"/items?page=0", "/items?page=2", "/items?page=abc"} {
		_, err := p.Paginate(testContext(target), qs)
		require.True(t, errors.Is(err, ErrInvalidPage), target)
		require.True(t, errors.Is(err, ErrNotFound), target)
	}
}

func TestNotFoundIsNotAnInvalidPage(t *testing.T) {
	t.Parallel()

	require.False(t, errors.Is(ErrNotFound, ErrInvalidPage))
	require.False(t, errors.Is(errors.Wrap(ErrNotFound, "user 7"), ErrInvalidPage))
	require.True(t, errors.Is(errors.Wrap(ErrInvalidPage, "page 3"), ErrInvalidPage))
}

func TestPageNumberPaginationEmptyCollectionHasOnePage(t *testing.T) {
	t.Parallel()

	p := &PageNumberPagination{PageSize: 10}
	page, err := p.Paginate(testContext("/items"), SliceQueryset[int]{})
	require.NoError(t, err)
	require.Equal(t, 0, page.Count)
	require.Empty(t, page.Next)
	require.Empty(t, page.Previous)
}

func TestPageNumberPaginationClientPageSize(t *testing.T) {
	t.Parallel()

	p := &PageNumberPagination{PageSizeQueryParam: "page_size", MaxPageSize: 5}
	qs := make(SliceQueryset[int], 20)

	page, err := p.Paginate(testContext("/items"), qs)
	require.NoError(t, err)
	require.Nil(t, page, "no default size and no client size means no pagination")

	page, err = p.Paginate(testContext("/items?page_size=3"), qs)
	require.NoError(t, err)
	require.Equal(t, 3, page.Limit)

	page, err = p.Paginate(testContext("/items?page_size=50"), qs)
	require.NoError(t, err)
	require.Equal(t, 5, page.Limit)
}

func TestLimitOffsetPagination(t *testing.T) {
	t.Parallel()

	p := &LimitOffsetPagination{DefaultLimit: 4, MaxLimit: 10}
	qs := make(SliceQueryset[int], 10)

	page, err := p.Paginate(testContext("/items"), qs)
	require.NoError(t, err)
	require.Equal(t, 0, page.Offset)
	require.Equal(t, 4, page.Limit)
	require.Equal(t, "http://example.com/items?limit=4&offset=4", page.Next)
	require.Empty(t, page.Previous)

	page, err = p.Paginate(testContext("/items?limit=4&offset=6"), qs)
	require.NoError(t, err)
	require.Empty(t, page.Next)
	require.Equal(t, "http://example.com/items?limit=4&offset=2", page.Previous)

	page, err = p.Paginate(testContext("/items?limit=4&offset=3"), qs)
	require.NoError(t, err)
	require.Equal(t, "http://example.com/items?limit=4", page.Previous)

	page, err = p.Paginate(testContext("/items?limit=100"), qs)
	require.NoError(t, err)
	require.Equal(t, 10, page.Limit)
}

func TestSliceQuerysetFetch(t *testing.T) {
	t.Parallel()

	qs := SliceQueryset[int]{1, 2, 3, 4, 5}
	ctx := testContext("/").Request.Context()

	got, err := qs.Fetch(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, got)

	got, err = qs.Fetch(ctx, 3, -1)
	require.NoError(t, err)
	require.Equal(t, []int{4, 5}, got)

	got, err = qs.Fetch(ctx, 9, 2)
	require.NoError(t, err)
	require.Empty(t, got)
}

package listview

import "context"

// DataSource is the REST boundary a Controller reads pages from.
// Filtering, sorting and pagination all happen server-side.
type DataSource[T any] interface {
	// List returns an unfiltered, default-sorted page.
	List(ctx context.Context, page, size int) (PageResult[T], error)
	// Search returns a page for the search text, filters and sort of q.
	Search(ctx context.Context, q QueryState) (PageResult[T], error)
}

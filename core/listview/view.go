package listview

import "context"

// View is the type-erased face of a Controller, for presentation layers that handle
// several entity screens at once.
type View interface {
	Name() string
	SortFields() []string
	FilterKeys() []string
	DefaultQuery() QueryState
	Query() QueryState
	Meta() Meta

	SetSearchText(text string)
	SetFilter(key, value string) error
	ClearFilters()
	SetSort(field string, dir SortDirection) error
	SetPageSize(n int) error
	GoToPage(ctx context.Context, n int) (int, error)
	Refresh(ctx context.Context) error
	Load(ctx context.Context, q QueryState) error
	Reset()
	DismissNotice()
	Watch(fn func(Meta)) (unsubscribe func())
	Close()
}

var _ View = (*Controller[struct{}])(nil)

// Meta is a Snapshot without its rows.
type Meta struct {
	Rev         uint64
	Query       QueryState
	Status      Status
	Err         string
	Notice      string
	Window      []int
	TotalCount  int
	TotalPages  int
	CurrentPage int
	Rows        int
}

func (c *Controller[T]) Meta() Meta {
	return metaOf(c.Snapshot())
}

// Watch is Subscribe without the rows.
func (c *Controller[T]) Watch(fn func(Meta)) func() {
	return c.Subscribe(func(snap Snapshot[T]) { fn(metaOf(snap)) })
}

func metaOf[T any](snap Snapshot[T]) Meta {
	return Meta{
		Rev:         snap.Rev,
		Query:       snap.Query,
		Status:      snap.Status,
		Err:         snap.Err,
		Notice:      snap.Notice,
		Window:      snap.Window,
		TotalCount:  snap.Result.TotalCount,
		TotalPages:  snap.Result.TotalPages,
		CurrentPage: snap.Result.CurrentPage,
		Rows:        len(snap.Result.Items),
	}
}

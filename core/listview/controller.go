// Package listview keeps a paginated, filtered and sorted list screen in sync with a REST data source.
package listview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/debounce"
)

const DefaultDebounce = 300 * time.Millisecond

var (
	ErrUnknownFilter    = errors.New("unknown filter")
	ErrUnknownSortField = errors.New("unknown sort field")
	ErrInvalidPageSize  = errors.New("page size must be positive")
	ErrClosed           = errors.New("list closed")
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Options configures a Controller for one entity screen.
type Options struct {
	Name           string
	PageSize       int
	DefaultSort    Sort
	SortFields     []string
	FilterKeys     []string
	DefaultFilters map[string]string // eg. scoping to the admin's school
	ValidateFilter FilterCheck

	Debounce  time.Duration // DefaultDebounce when zero
	AfterFunc debounce.AfterFunc
	Logger    core.Logger
}

// FilterCheck validates the value of filter key against the other filters of the query
// and returns it in the form the server expects.
type FilterCheck func(key, value string, filters map[string]string) (string, error)

// Canonical returns the option equal to value, ignoring case.
func Canonical(value string, options []string) (string, bool) {
	for _, opt := range options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}

// Snapshot is what the presentation layer renders.
// Rev increases with every snapshot so out-of-order deliveries can be dropped.
type Snapshot[T any] struct {
	Rev    uint64
	Query  QueryState
	Result PageResult[T]
	Status Status
	Err    string
	Notice string
	Window []int
}

// Controller owns the query state of one list screen and applies the result of
// the most recently initiated fetch only. It is safe for concurrent use.
type Controller[T any] struct {
	name        string
	ds          DataSource[T]
	logger      core.Logger
	debouncer   *debounce.Debouncer
	defaults    QueryState
	sortFields  []string
	filterKeys  []string
	checkFilter FilterCheck

	ctx    context.Context // cancelled on Close
	cancel context.CancelFunc

	mu        sync.Mutex
	query     QueryState
	version   uint64 // bumped by every query change
	seq       uint64 // bumped by every fetch
	rev       uint64
	result    PageResult[T]
	hasResult bool
	status    Status
	errMsg    string
	notice    string
	listeners map[int]func(Snapshot[T])
	nextLsnr  int
}

func New[T any](ds DataSource[T], opts Options) (*Controller[T], error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(ds, "ds"),
		vala.IsNotNil(opts.Logger, "opts.Logger"),
		vala.StringNotEmpty(opts.Name, "opts.Name"),
		vala.GreaterThan(opts.PageSize, 0, "opts.PageSize"),
	).Check(); err != nil {
		return nil, err
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}

	var dbOpts []debounce.Option
	if opts.AfterFunc != nil {
		dbOpts = append(dbOpts, debounce.WithAfterFunc(opts.AfterFunc))
	}

	c := &Controller[T]{
		name:        opts.Name,
		ds:          ds,
		logger:      opts.Logger,
		debouncer:   debounce.New(opts.Debounce, dbOpts...),
		sortFields:  append([]string(nil), opts.SortFields...),
		filterKeys:  append([]string(nil), opts.FilterKeys...),
		checkFilter: opts.ValidateFilter,
		listeners:   make(map[int]func(Snapshot[T])),
	}
	sort.Strings(c.sortFields)
	sort.Strings(c.filterKeys)

	if opts.DefaultSort.Field != "" && !c.knownSortField(opts.DefaultSort.Field) {
		return nil, errors.Wrapf(ErrUnknownSortField, "default sort %q", opts.DefaultSort.Field)
	}
	if opts.DefaultSort.Field != "" && opts.DefaultSort.Direction == "" {
		opts.DefaultSort.Direction = Ascending
	}
	c.defaults = QueryState{
		Filters:  make(map[string]string, len(opts.DefaultFilters)),
		Sort:     opts.DefaultSort,
		PageSize: opts.PageSize,
	}
	for k, v := range opts.DefaultFilters {
		if !c.knownFilter(k) {
			return nil, errors.Wrapf(ErrUnknownFilter, "default filter %q", k)
		}
		c.defaults.Filters[k] = v
	}
	c.query = c.defaults.Clone()
	c.result = PageResult[T]{Items: []T{}}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

func (c *Controller[T]) Name() string { return c.name }

// SortFields returns the fields the list can be sorted on.
func (c *Controller[T]) SortFields() []string { return append([]string(nil), c.sortFields...) }

// FilterKeys returns the filters the list accepts.
func (c *Controller[T]) FilterKeys() []string { return append([]string(nil), c.filterKeys...) }

// DefaultQuery returns the query the screen starts with.
func (c *Controller[T]) DefaultQuery() QueryState { return c.defaults.Clone() }

func (c *Controller[T]) knownFilter(key string) bool {
	i := sort.SearchStrings(c.filterKeys, key)
	return i < len(c.filterKeys) && c.filterKeys[i] == key
}

func (c *Controller[T]) knownSortField(field string) bool {
	i := sort.SearchStrings(c.sortFields, field)
	return i < len(c.sortFields) && c.sortFields[i] == field
}

// Query mutations. Each one resets the page to 0 and schedules a debounced refresh.

func (c *Controller[T]) SetSearchText(text string) {
	c.mutate(func(q *QueryState) { q.SearchText = core.CleanString(text) })
}

// SetFilter sets one filter; an empty value removes it.
func (c *Controller[T]) SetFilter(key, value string) error {
	if !c.knownFilter(key) {
		return errors.Wrapf(ErrUnknownFilter, "%q", key)
	}
	value = core.CleanString(value)
	if value != "" && c.checkFilter != nil {
		filters := c.Query().Filters
		canon, err := c.checkFilter(key, value, filters)
		if err != nil {
			return errors.Wrapf(err, "filter %q", key)
		}
		value = canon
	}
	c.mutate(func(q *QueryState) {
		if value == "" {
			delete(q.Filters, key)
		} else {
			q.Filters[key] = value
		}
	})
	return nil
}

func (c *Controller[T]) ClearFilters() {
	c.mutate(func(q *QueryState) { q.Filters = make(map[string]string) })
}

func (c *Controller[T]) SetSort(field string, dir SortDirection) error {
	if !c.knownSortField(field) {
		return errors.Wrapf(ErrUnknownSortField, "%q", field)
	}
	if dir != Ascending && dir != Descending {
		return errors.Wrapf(ErrInvalidDirection, "%q", dir)
	}
	c.mutate(func(q *QueryState) { q.Sort = Sort{Field: field, Direction: dir} })
	return nil
}

func (c *Controller[T]) SetPageSize(n int) error {
	if n <= 0 {
		return errors.Wrapf(ErrInvalidPageSize, "got %d", n)
	}
	c.mutate(func(q *QueryState) { q.PageSize = n })
	return nil
}

// Reset restores the default query (default filters included).
func (c *Controller[T]) Reset() {
	c.mutate(func(q *QueryState) { *q = c.defaults.Clone() })
}

func (c *Controller[T]) mutate(fn func(*QueryState)) {
	c.mu.Lock()
	fn(&c.query)
	c.query.Page = 0
	c.version++
	c.notice = ""
	c.mu.Unlock()

	c.debouncer.Trigger(c.ctx, func(ctx context.Context) {
		_ = c.Refresh(ctx) // surfaced through the snapshot
	})
}

// Load replaces the whole query (eg. a saved view) and fetches immediately.
func (c *Controller[T]) Load(ctx context.Context, q QueryState) error {
	q = q.Clone()
	for k, v := range q.Filters {
		if !c.knownFilter(k) {
			return errors.Wrapf(ErrUnknownFilter, "%q", k)
		}
		if c.checkFilter != nil {
			canon, err := c.checkFilter(k, v, q.Filters)
			if err != nil {
				return errors.Wrapf(err, "filter %q", k)
			}
			q.Filters[k] = canon
		}
	}
	if q.Sort.Field == "" {
		q.Sort = c.defaults.Sort
	} else if !c.knownSortField(q.Sort.Field) {
		return errors.Wrapf(ErrUnknownSortField, "%q", q.Sort.Field)
	}
	if q.PageSize <= 0 {
		q.PageSize = c.defaults.PageSize
	}
	q.Page = 0

	c.debouncer.Cancel()
	c.mu.Lock()
	c.query = q
	c.version++
	c.notice = ""
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// GoToPage fetches page n immediately. Out-of-range pages are clamped to
// [0, totalPages-1] once the total is known; the page actually requested is returned.
func (c *Controller[T]) GoToPage(ctx context.Context, n int) (int, error) {
	c.mu.Lock()
	target := n
	if target < 0 {
		target = 0
	}
	if c.hasResult {
		last := c.result.TotalPages - 1
		if last < 0 {
			last = 0
		}
		if target > last {
			target = last
		}
	}
	c.query.Page = target
	c.version++
	c.mu.Unlock()

	if target != n {
		c.logger.Warn(fmt.Sprintf("%s: page %d out of range; clamped to %d", c.name, n, target))
	}
	// the immediate fetch carries any pending debounced change
	c.debouncer.Cancel()
	return target, c.Refresh(ctx)
}

// Refresh fetches the page for the current query and applies it unless a newer fetch was started meanwhile.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	c.mu.Lock()
	c.seq++
	seq, version := c.seq, c.version
	q := c.query.Clone()
	c.status = StatusLoading
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	// Close cancels the fetch too
	fetchCtx, stop := context.WithCancel(ctx)
	defer stop()
	unhook := context.AfterFunc(c.ctx, stop)
	defer unhook()

	var res PageResult[T]
	var err error
	if q.IsAdvanced(c.defaults.Sort) {
		res, err = c.ds.Search(fetchCtx, q)
		err = errors.Wrap(err, "searching "+c.name)
	} else {
		res, err = c.ds.List(fetchCtx, q.Page, q.PageSize)
		err = errors.Wrap(err, "listing "+c.name)
	}
	return c.apply(ctx, seq, version, q, res, err)
}

func (c *Controller[T]) apply(ctx context.Context, seq, version uint64, q QueryState, res PageResult[T], err error) error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug(fmt.Sprintf("%s: discarding stale response #%d", c.name, seq))
		return nil
	}

	if err != nil {
		// keep the rows on screen; only surface the message
		c.status = StatusError
		c.errMsg = core.DisplayMessage(err)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn(fmt.Sprintf("%s: fetch failed", c.name), err)
		c.publish(snap)
		return err
	}

	res = res.normalize(q.Page, q.PageSize)
	last := res.TotalPages - 1
	if last < 0 {
		last = 0
	}
	if q.Page > last && version == c.version {
		// the page vanished (eg. rows deleted elsewhere): never display a page that does not exist
		c.query.Page = last
		c.version++
		c.mu.Unlock()
		c.logger.Warn(fmt.Sprintf("%s: page %d no longer exists; clamped to %d", c.name, q.Page, last))
		return c.Refresh(ctx)
	}

	c.result = res
	c.hasResult = true
	c.status = StatusReady
	c.errMsg = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// AfterMutation refreshes the current page after a successful mutation and shows notice.
// When removedRow is set and the removed row was alone on a non-first page, the previous page is fetched instead.
func (c *Controller[T]) AfterMutation(ctx context.Context, removedRow bool, notice string) error {
	c.mu.Lock()
	if removedRow && c.query.Page > 0 && len(c.result.Items) <= 1 {
		c.query.Page--
		c.version++
	}
	c.notice = notice
	c.mu.Unlock()
	return c.Refresh(ctx)
}

func (c *Controller[T]) DismissNotice() {
	c.mu.Lock()
	c.notice = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// Find returns the first row of the current page matching pred.
func (c *Controller[T]) Find(pred func(T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.result.Items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Query returns a copy of the current query state.
func (c *Controller[T]) Query() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive every snapshot; the returned func unregisters it.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextLsnr
	c.nextLsnr++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close tears the controller down: pending refreshes are dropped, fetches in flight are cancelled
// and their answers ignored, and later fetches refused.
func (c *Controller[T]) Close() {
	c.debouncer.Cancel()
	c.cancel()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	c.rev++
	return Snapshot[T]{
		Rev:    c.rev,
		Query:  c.query.Clone(),
		Result: c.result,
		Status: c.status,
		Err:    c.errMsg,
		Notice: c.notice,
		Window: PageWindow(c.result.CurrentPage, c.result.TotalPages),
	}
}

func (c *Controller[T]) publish(snap Snapshot[T]) {
	c.mu.Lock()
	lsnrs := make([]func(Snapshot[T]), 0, len(c.listeners))
	for _, fn := range c.listeners {
		lsnrs = append(lsnrs, fn)
	}
	c.mu.Unlock()

	for _, fn := range lsnrs {
		fn(snap)
	}
}

package listview

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

var ErrInvalidDirection = errors.New("invalid sort direction")

// ParseDirection accepts asc|ascending|desc|descending, case-insensitive.
func ParseDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", errors.Wrapf(ErrInvalidDirection, "%q", s)
	}
}

// Sort is the single active sort key.
type Sort struct {
	Field     string
	Direction SortDirection
}

// ParseSort reads "field", "-field" (descending) or "field:desc".
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return Sort{Field: s[1:], Direction: Descending}, nil
	}
	field, dir := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		field, dir = s[:i], s[i+1:]
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return Sort{}, err
	}
	return Sort{Field: strings.TrimSpace(field), Direction: d}, nil
}

func (s Sort) String() string {
	if s.Field == "" {
		return ""
	}
	return s.Field + ":" + string(s.Direction)
}

// QueryState is everything the user can change about a list.
// Page is zero-based.
type QueryState struct {
	SearchText string
	Filters    map[string]string
	Sort       Sort
	Page       int
	PageSize   int
}

func (q QueryState) Clone() QueryState {
	c := q
	c.Filters = make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		c.Filters[k] = v
	}
	return c
}

// IsAdvanced reports whether the query needs the advanced search operation:
// any search text, any filter or a sort other than the default one.
func (q QueryState) IsAdvanced(defaultSort Sort) bool {
	return q.SearchText != "" || len(q.Filters) > 0 || q.Sort != defaultSort
}

// FilterKeys returns the active filter keys, sorted.
func (q QueryState) FilterKeys() []string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PageResult is one page of server-sorted and filtered rows.
type PageResult[T any] struct {
	Items       []T
	TotalCount  int
	TotalPages  int
	CurrentPage int
	Size        int
	HasNext     bool
	HasPrevious bool
}

// normalize fills what the server left out. The server stays authoritative for what it did send.
func (r PageResult[T]) normalize(page, pageSize int) PageResult[T] {
	if r.Items == nil {
		r.Items = []T{}
	}
	if r.TotalCount == 0 && len(r.Items) > 0 && r.TotalPages == 0 {
		r.TotalCount = page*pageSize + len(r.Items)
	}
	if r.TotalPages == 0 && r.TotalCount > 0 {
		r.TotalPages = core.CeilDiv(r.TotalCount, pageSize)
	}
	if r.Size == 0 {
		r.Size = pageSize
	}
	if r.CurrentPage == 0 {
		r.CurrentPage = page
	}
	if !r.HasNext && !r.HasPrevious {
		r.HasPrevious = r.CurrentPage > 0
		r.HasNext = r.CurrentPage < r.TotalPages-1
	}
	return r
}

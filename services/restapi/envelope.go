package restapi

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
)

var listKeys = []string{"data", "items"}

// Counts may sit next to the items (nested shape) or at the top level (legacy flat shape).
var countKeys = struct {
	total, pages, page, size, next, prev []string
}{
	total: []string{"totalCount", "total", "totalElements"},
	pages: []string{"totalPages"},
	page:  []string{"currentPage", "page"},
	size:  []string{"size", "pageSize"},
	next:  []string{"hasNext"},
	prev:  []string{"hasPrevious"},
}

// parsePage reads a page of T from either
//
//	{success, data: {data: [...], totalCount, totalPages, currentPage, size, hasNext, hasPrevious}}
//	{success, data: [...], totalCount?, totalPages?, ...}
//
// and a bare array.
func parsePage[T any](op string, body gjson.Result) (listview.PageResult[T], error) {
	var page listview.PageResult[T]

	items, meta := body, gjson.Result{}
	switch data := body.Get("data"); {
	case body.IsArray():
	case data.IsArray():
		items, meta = data, body
	case data.IsObject():
		// a null or missing list is an empty page
		switch list := first(data, listKeys); {
		case list.IsArray():
			items, meta = list, data
		case !list.Exists() || list.Type == gjson.Null:
			items, meta = gjson.Result{}, data
		default:
			return page, core.NewTransportError(op, errUnexpectedShape)
		}
	case !data.Exists() || data.Type == gjson.Null:
		return listview.PageResult[T]{Items: []T{}}, nil
	default:
		return page, core.NewTransportError(op, errUnexpectedShape)
	}

	page.Items = make([]T, 0, len(items.Array()))
	if items.IsArray() {
		if err := json.Unmarshal([]byte(items.Raw), &page.Items); err != nil {
			return page, core.NewTransportError(op, err)
		}
	}
	if meta.Exists() {
		page.TotalCount = int(first(meta, countKeys.total).Int())
		page.TotalPages = int(first(meta, countKeys.pages).Int())
		page.CurrentPage = int(first(meta, countKeys.page).Int())
		page.Size = int(first(meta, countKeys.size).Int())
		page.HasNext = first(meta, countKeys.next).Bool()
		page.HasPrevious = first(meta, countKeys.prev).Bool()
	}
	return page, nil
}

// parseEntity reads the entity of a create/update answer: `data` when present, the whole body otherwise.
func parseEntity[T any](op string, body gjson.Result) (T, error) {
	var out T
	raw := body
	if data := body.Get("data"); data.IsObject() {
		raw = data
	}
	if !raw.IsObject() {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw.Raw), &out); err != nil {
		return out, core.NewTransportError(op, err)
	}
	return out, nil
}

func first(res gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if v := res.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

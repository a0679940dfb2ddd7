package restapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/klabu/core/listview"
)

var errUnexpectedShape = errors.New("unexpected response shape")

// Resource is the REST collection `/{name}` of T.
type Resource[T any] struct {
	client *Client
	name   string
}

var _ listview.DataSource[struct{}] = (*Resource[struct{}])(nil)

func NewResource[T any](client *Client, name string) *Resource[T] {
	return &Resource[T]{client: client, name: strings.Trim(name, "/")}
}

func (r *Resource[T]) Name() string { return r.name }

// List: GET /{name}?page=&size=
func (r *Resource[T]) List(ctx context.Context, page, size int) (listview.PageResult[T], error) {
	query := map[string]string{"page": strconv.Itoa(page), "size": strconv.Itoa(size)}
	body, err := r.client.Send(ctx, rest.Get, r.name, query, nil)
	if err != nil {
		return listview.PageResult[T]{}, err
	}
	return parsePage[T]("GET /"+r.name, body)
}

// Search: GET /{name}/advanced-search?search=&<filters>&sortBy=&sortDirection=&page=&size=
func (r *Resource[T]) Search(ctx context.Context, q listview.QueryState) (listview.PageResult[T], error) {
	path := r.name + "/advanced-search"
	body, err := r.client.Send(ctx, rest.Get, path, SearchParams(q), nil)
	if err != nil {
		return listview.PageResult[T]{}, err
	}
	return parsePage[T]("GET /"+path, body)
}

// SearchParams encodes q the way the advanced search endpoints expect it.
func SearchParams(q listview.QueryState) map[string]string {
	params := make(map[string]string, len(q.Filters)+5)
	for k, v := range q.Filters {
		params[k] = v
	}
	if q.SearchText != "" {
		params["search"] = q.SearchText
	}
	if q.Sort.Field != "" {
		params["sortBy"] = q.Sort.Field
		params["sortDirection"] = strings.ToUpper(string(q.Sort.Direction))
	}
	params["page"] = strconv.Itoa(q.Page)
	params["size"] = strconv.Itoa(q.PageSize)
	return params
}

// Create: POST /{name}
func (r *Resource[T]) Create(ctx context.Context, input interface{}) (T, error) {
	body, err := r.client.Send(ctx, rest.Post, r.name, nil, input)
	if err != nil {
		var zero T
		return zero, err
	}
	return parseEntity[T]("POST /"+r.name, body)
}

// Update: PUT /{name}/{id}
func (r *Resource[T]) Update(ctx context.Context, id int64, input interface{}) (T, error) {
	path := r.itemPath(id)
	body, err := r.client.Send(ctx, rest.Put, path, nil, input)
	if err != nil {
		var zero T
		return zero, err
	}
	return parseEntity[T]("PUT /"+path, body)
}

// Delete: DELETE /{name}/{id}
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Send(ctx, rest.Delete, r.itemPath(id), nil, nil)
	return err
}

// Do runs an entity action: POST /{name}/{id}/{action}
func (r *Resource[T]) Do(ctx context.Context, id int64, action string, input interface{}) error {
	_, err := r.client.Send(ctx, rest.Post, r.itemPath(id)+"/"+action, nil, input)
	return err
}

func (r *Resource[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.name, id)
}

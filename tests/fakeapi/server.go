// Package fakeapi is an in-memory stand-in for the club-management REST backend.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// reserved advanced-search params; every other param is a filter
var reserved = map[string]bool{"search": true, "sortBy": true, "sortDirection": true, "page": true, "size": true}

type Row = map[string]interface{}

// Action mutates a row for POST /{resource}/{id}/{action}.
type Action func(row Row, body Row) error

// Collection describes one resource.
type Collection struct {
	Name         string
	SearchFields []string
	DefaultSort  string
	DefaultDesc  bool
	RangeFields  map[string]string // range filter key -> field, when not derived from the key
	Actions      map[string]Action // merged over DefaultActions
}

type collection struct {
	Collection
	rows   []Row
	nextID int64
	flat   bool
}

// Request is a recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   Row
}

type failure struct {
	status  int
	message string
	raw     string
}

// Gate holds one list or search request until released.
type Gate struct {
	Method string
	Path   string
	Query  url.Values

	release chan struct{}
}

func (g *Gate) Release() { close(g.release) }

type Server struct {
	ts   *httptest.Server
	echo *echo.Echo
	api  *echo.Group

	mu          sync.Mutex
	collections map[string]*collection
	failures    map[string]failure
	requests    []Request
	delay       time.Duration
	gating      bool
	gates       chan *Gate
}

// New starts a fake backend, closed when t ends.
func New(t *testing.T) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)

	s := &Server{
		echo:        e,
		collections: make(map[string]*collection),
		failures:    make(map[string]failure),
		gates:       make(chan *Gate, 32),
	}
	s.api = e.Group("/api", s.record)
	s.ts = httptest.NewServer(e)
	t.Cleanup(s.ts.Close)
	return s
}

// URL is the API base URL.
func (s *Server) URL() string { return s.ts.URL + "/api" }

// Register adds a collection seeded with rows (any JSON-encodable values).
func (s *Server) Register(c Collection, rows ...interface{}) {
	coll := &collection{Collection: c, nextID: 1}
	actions := make(map[string]Action, len(DefaultActions)+len(c.Actions))
	for k, v := range DefaultActions {
		actions[k] = v
	}
	for k, v := range c.Actions {
		actions[k] = v
	}
	coll.Actions = actions
	for _, r := range rows {
		row := toRow(r)
		if id, ok := row["id"].(float64); ok && int64(id) >= coll.nextID {
			coll.nextID = int64(id) + 1
		} else if !ok {
			row["id"] = float64(coll.nextID)
			coll.nextID++
		}
		coll.rows = append(coll.rows, row)
	}

	s.mu.Lock()
	s.collections[c.Name] = coll
	s.mu.Unlock()

	base := "/" + c.Name
	s.api.GET(base, s.list(c.Name))
	s.api.GET(base+"/advanced-search", s.search(c.Name))
	s.api.POST(base, s.create(c.Name))
	s.api.PUT(base+"/:id", s.update(c.Name))
	s.api.DELETE(base+"/:id", s.delete(c.Name))
	s.api.POST(base+"/:id/:action", s.action(c.Name))
}

// SetFlat switches a collection to the legacy flat envelope.
func (s *Server) SetFlat(name string, flat bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name].flat = flat
}

// Fail makes every `METHOD /path` request (path without the /api prefix) answer with an error envelope.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// FailRaw answers `METHOD /path` with a raw body.
func (s *Server) FailRaw(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, raw: body}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// SetDelay slows every response down.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// EnableGates holds list and search requests until their Gate is released.
func (s *Server) EnableGates() <-chan *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gating = true
	return s.gates
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or the zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Rows returns a copy of a collection's rows.
func (s *Server) Rows(name string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[name]
	out := make([]Row, 0, len(coll.rows))
	for _, r := range coll.rows {
		out = append(out, copyRow(r))
	}
	return out
}

// Remove deletes a row behind the client's back.
func (s *Server) Remove(name string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[name]
	if i := coll.index(id); i >= 0 {
		coll.rows = append(coll.rows[:i], coll.rows[i+1:]...)
	}
}

// middleware

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rec := Request{
			Method: req.Method,
			Path:   strings.TrimPrefix(req.URL.Path, "/api"),
			Query:  req.URL.Query(),
			Header: req.Header.Clone(),
		}
		if req.Body != nil && req.ContentLength != 0 {
			var body Row
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return c.JSON(http.StatusBadRequest, Row{"success": false, "message": "malformed body"})
			}
			rec.Body = body
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		flr, failing := s.failures[rec.Method+" "+rec.Path]
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return nil
			}
		}
		if failing {
			if flr.raw != "" {
				return c.String(flr.status, flr.raw)
			}
			return c.JSON(flr.status, Row{"success": false, "message": flr.message})
		}
		if req.Header.Get("Authorization") == "" {
			return c.JSON(http.StatusUnauthorized, Row{"success": false, "message": "missing or malformed jwt"})
		}
		c.Set("body", rec.Body)
		return next(c)
	}
}

func (s *Server) wait(c echo.Context) {
	s.mu.Lock()
	gating := s.gating
	s.mu.Unlock()
	if !gating {
		return
	}
	req := c.Request()
	g := &Gate{Method: req.Method, Path: strings.TrimPrefix(req.URL.Path, "/api"), Query: req.URL.Query(), release: make(chan struct{})}
	s.gates <- g
	select {
	case <-g.release:
	case <-req.Context().Done():
	}
}

// handlers

func (s *Server) list(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.wait(c)
		page, size, err := pageParams(c)
		if err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		rows := append([]Row(nil), coll.rows...)
		sortRows(rows, coll.DefaultSort, coll.DefaultDesc)
		return s.page(c, coll, rows, page, size)
	}
}

func (s *Server) search(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.wait(c)
		page, size, err := pageParams(c)
		if err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		sortBy, desc := c.QueryParam("sortBy"), strings.EqualFold(c.QueryParam("sortDirection"), "desc")

		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		if sortBy == "" {
			sortBy, desc = coll.DefaultSort, coll.DefaultDesc
		}

		term := strings.ToLower(c.QueryParam("search"))
		filters := c.QueryParams()
		rows := make([]Row, 0, len(coll.rows))
		for _, row := range coll.rows {
			if term != "" && !matchesTerm(row, coll.SearchFields, term) {
				continue
			}
			if !matchesFilters(row, filters, coll.RangeFields) {
				continue
			}
			rows = append(rows, row)
		}
		sortRows(rows, sortBy, desc)
		return s.page(c, coll, rows, page, size)
	}
}

func (s *Server) page(c echo.Context, coll *collection, rows []Row, page, size int) error {
	total := len(rows)
	pages := (total + size - 1) / size
	start, end := page*size, page*size+size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]Row, 0, end-start)
	for _, r := range rows[start:end] {
		items = append(items, copyRow(r))
	}
	meta := Row{
		"totalCount":  total,
		"totalPages":  pages,
		"currentPage": page,
		"size":        size,
		"hasNext":     page < pages-1,
		"hasPrevious": page > 0,
	}
	if coll.flat {
		meta["success"] = true
		meta["data"] = items
		return c.JSON(http.StatusOK, meta)
	}
	meta["data"] = items
	return c.JSON(http.StatusOK, Row{"success": true, "data": meta})
}

func (s *Server) create(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, _ := c.Get("body").(Row)
		if body == nil {
			return fail(c, http.StatusBadRequest, "empty body")
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		row := copyRow(body)
		row["id"] = float64(coll.nextID)
		coll.nextID++
		coll.rows = append(coll.rows, row)
		return c.JSON(http.StatusCreated, Row{"success": true, "data": copyRow(row)})
	}
}

func (s *Server) update(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, _ := c.Get("body").(Row)
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		i, status := coll.lookup(c.Param("id"))
		if i < 0 {
			return fail(c, status, http.StatusText(status))
		}
		row := coll.rows[i]
		for k, v := range body {
			if k != "id" {
				row[k] = v
			}
		}
		return c.JSON(http.StatusOK, Row{"success": true, "data": copyRow(row)})
	}
}

func (s *Server) delete(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		i, status := coll.lookup(c.Param("id"))
		if i < 0 {
			return fail(c, status, http.StatusText(status))
		}
		coll.rows = append(coll.rows[:i], coll.rows[i+1:]...)
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) action(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, _ := c.Get("body").(Row)
		s.mu.Lock()
		defer s.mu.Unlock()
		coll := s.collections[name]
		i, status := coll.lookup(c.Param("id"))
		if i < 0 {
			return fail(c, status, http.StatusText(status))
		}
		act, ok := coll.Actions[c.Param("action")]
		if !ok {
			return fail(c, http.StatusNotFound, fmt.Sprintf("unknown action %q", c.Param("action")))
		}
		row := coll.rows[i]
		if err := act(row, body); err != nil {
			return fail(c, http.StatusUnprocessableEntity, err.Error())
		}
		return c.JSON(http.StatusOK, Row{"success": true, "data": copyRow(row)})
	}
}

// lookup returns the index of the row with id param, or -1 and the status to answer with.
func (coll *collection) lookup(param string) (int, int) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return -1, http.StatusBadRequest
	}
	if i := coll.index(id); i >= 0 {
		return i, http.StatusOK
	}
	return -1, http.StatusNotFound
}

func (coll *collection) index(id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, r := range coll.rows {
		if fmt.Sprintf("%v", r["id"]) == want {
			return i
		}
	}
	return -1
}

// helpers

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, Row{"success": false, "message": msg})
}

func pageParams(c echo.Context) (page, size int, err error) {
	page, size = 0, 10
	if v := c.QueryParam("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 0 {
			return 0, 0, fmt.Errorf("invalid page %q", v)
		}
	}
	if v := c.QueryParam("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size <= 0 {
			return 0, 0, fmt.Errorf("invalid size %q", v)
		}
	}
	return page, size, nil
}

func matchesTerm(row Row, fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(fmt.Sprintf("%v", row[f])), term) {
			return true
		}
	}
	return false
}

// matchesFilters applies equality filters and the xxxFrom/xxxTo/xxxMin/xxxMax range filters.
func matchesFilters(row Row, params url.Values, rangeFields map[string]string) bool {
	for key, vals := range params {
		if reserved[key] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		want := vals[0]
		field, lower, isRange := rangeFilter(key)
		if f, ok := rangeFields[key]; ok {
			field = f
		}
		switch {
		case !isRange:
			if !strings.EqualFold(fmt.Sprintf("%v", row[key]), want) {
				return false
			}
		case lower && compare(row[field], want) < 0:
			return false
		case !lower && compare(row[field], want) > 0:
			return false
		}
	}
	return true
}

func rangeFilter(key string) (field string, lower, ok bool) {
	for _, sfx := range []string{"From", "Min"} {
		if strings.HasSuffix(key, sfx) {
			return strings.TrimSuffix(key, sfx), true, true
		}
	}
	for _, sfx := range []string{"To", "Max"} {
		if strings.HasSuffix(key, sfx) {
			return strings.TrimSuffix(key, sfx), false, true
		}
	}
	return key, false, false
}

// compare orders numbers numerically and everything else as case-insensitive strings.
func compare(a interface{}, b interface{}) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(fmt.Sprintf("%v", a)), strings.ToLower(fmt.Sprintf("%v", b)))
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func sortRows(rows []Row, field string, desc bool) {
	if field == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compare(rows[i][field], rows[j][field])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func toRow(v interface{}) Row {
	if r, ok := v.(Row); ok {
		return copyRow(r)
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		panic(err)
	}
	return row
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
)

var (
	ErrViewNotFound = errors.New("saved view not found")
	ErrViewName     = errors.New("saved view name is required")
)

// SavedView is a named QueryState of one screen. The page is never saved.
type SavedView struct {
	ID        int64
	Screen    string
	Name      string
	Query     listview.QueryState
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type viewRow struct {
	ID            int64       `db:"id"`
	Screen        string      `db:"screen"`
	Name          string      `db:"name"`
	SearchText    string      `db:"search_text"`
	Filters       string      `db:"filters"`
	SortField     string      `db:"sort_field"`
	SortDirection string      `db:"sort_direction"`
	PageSize      null.Int    `db:"page_size"`
	Note          null.String `db:"note"`
	CreatedAt     int64       `db:"created_at"`
	UpdatedAt     int64       `db:"updated_at"`
}

const viewColumns = `id, screen, name, search_text, filters, sort_field, sort_direction, page_size, note, created_at, updated_at`

func (r viewRow) view() (SavedView, error) {
	filters := make(map[string]string)
	if err := json.Unmarshal([]byte(r.Filters), &filters); err != nil {
		return SavedView{}, errors.Wrapf(err, "decoding filters of view %q", r.Name)
	}
	dir, err := listview.ParseDirection(r.SortDirection)
	if err != nil {
		return SavedView{}, err
	}
	return SavedView{
		ID:     r.ID,
		Screen: r.Screen,
		Name:   r.Name,
		Query: listview.QueryState{
			SearchText: r.SearchText,
			Filters:    filters,
			Sort:       listview.Sort{Field: r.SortField, Direction: dir},
			PageSize:   r.PageSize.Int,
		},
		Note:      r.Note.String,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC(),
	}, nil
}

// ViewRepository stores saved views.
type ViewRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewViewRepository(db *sqlx.DB) *ViewRepository {
	vala.BeginValidation().Validate(vala.IsNotNil(db, "db")).CheckAndPanic()
	return &ViewRepository{db: db, now: time.Now}
}

// Save creates the view `name` of `screen`, or overwrites it when it already exists.
func (repo *ViewRepository) Save(ctx context.Context, screen, name string, q listview.QueryState, note string) (SavedView, error) {
	screen, name = core.CleanString(screen, true /* lower */), core.CleanString(name)
	if screen == "" || name == "" {
		return SavedView{}, ErrViewName
	}
	if q.Filters == nil {
		q.Filters = map[string]string{}
	}
	filters, err := json.Marshal(q.Filters)
	if err != nil {
		return SavedView{}, errors.Wrap(err, "encoding filters")
	}
	if q.Sort.Direction == "" {
		q.Sort.Direction = listview.Ascending
	}
	now := repo.now().Unix()

	query := repo.db.Rebind(`
INSERT INTO saved_view (screen, name, search_text, filters, sort_field, sort_direction, page_size, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (screen, name) DO UPDATE SET
    search_text = excluded.search_text,
    filters = excluded.filters,
    sort_field = excluded.sort_field,
    sort_direction = excluded.sort_direction,
    page_size = excluded.page_size,
    note = excluded.note,
    updated_at = excluded.updated_at
RETURNING ` + viewColumns)

	var row viewRow
	err = repo.db.GetContext(ctx, &row, query,
		screen, name, q.SearchText, string(filters), q.Sort.Field, string(q.Sort.Direction),
		null.NewInt(q.PageSize, q.PageSize > 0), null.NewString(note, note != ""), now, now,
	)
	if err != nil {
		return SavedView{}, errors.Wrapf(err, "saving view %q", name)
	}
	return row.view()
}

func (repo *ViewRepository) Get(ctx context.Context, screen, name string) (SavedView, error) {
	query := repo.db.Rebind(`SELECT ` + viewColumns + ` FROM saved_view WHERE screen = ? AND name = ?`)
	var row viewRow
	err := repo.db.GetContext(ctx, &row, query, core.CleanString(screen, true /* lower */), core.CleanString(name))
	if errors.Is(err, sql.ErrNoRows) {
		return SavedView{}, errors.Wrapf(ErrViewNotFound, "%q", name)
	}
	if err != nil {
		return SavedView{}, errors.Wrapf(err, "loading view %q", name)
	}
	return row.view()
}

// List returns the views of `screen` sorted by name, or every view when screen is empty.
func (repo *ViewRepository) List(ctx context.Context, screen string) ([]SavedView, error) {
	query, args := `SELECT `+viewColumns+` FROM saved_view ORDER BY screen, name`, []interface{}{}
	if screen = core.CleanString(screen, true /* lower */); screen != "" {
		query = `SELECT ` + viewColumns + ` FROM saved_view WHERE screen = ? ORDER BY name`
		args = append(args, screen)
	}

	var rows []viewRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "listing views")
	}
	views := make([]SavedView, 0, len(rows))
	for _, row := range rows {
		v, err := row.view()
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (repo *ViewRepository) Delete(ctx context.Context, screen, name string) error {
	query := repo.db.Rebind(`DELETE FROM saved_view WHERE screen = ? AND name = ?`)
	res, err := repo.db.ExecContext(ctx, query, core.CleanString(screen, true /* lower */), core.CleanString(name))
	if err != nil {
		return errors.Wrapf(err, "deleting view %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting view %q", name)
	}
	if n == 0 {
		return errors.Wrapf(ErrViewNotFound, "%q", name)
	}
	return nil
}

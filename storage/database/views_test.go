package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := &core.Config{}
	conf.Database.Engine = EngineSQLite
	conf.Database.DSN = ":memory:"
	db, err := Open(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	_, err := Connect(ctx, "oracle", "whatever")
	assert.True(t, errors.Is(err, ErrUnknownEngine))

	_, err = Connect(ctx, "SQLite", " ")
	assert.EqualError(t, err, "sqlite dsn is required")
}

func TestRunMigrations(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tableCount := func() int {
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'saved_view'`))
		return n
	}

	// already up to date
	require.NoError(t, Migrate(ctx, db, EngineSQLite))
	var version int64
	require.NoError(t, db.Get(&version, `SELECT MAX(version_id) FROM goose_db_version WHERE is_applied`))
	assert.EqualValues(t, 1, version)
	assert.Equal(t, 1, tableCount())

	require.NoError(t, RunMigrations(ctx, db.DB, EngineSQLite, "down"))
	assert.Equal(t, 0, tableCount())

	require.NoError(t, RunMigrations(ctx, db.DB, "SQLite", "up"))
	assert.Equal(t, 1, tableCount())

	err := Migrate(ctx, db, "mssql")
	assert.True(t, errors.Is(err, ErrUnknownEngine))

	err = RunMigrations(ctx, db.DB, EngineSQLite, "sideways")
	assert.Error(t, err)
}

func TestViewRepository(t *testing.T) {
	repo := NewViewRepository(testDB(t))
	ctx := context.Background()
	clock := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	_, err := repo.Save(ctx, "members", "  ", listview.QueryState{}, "")
	assert.Equal(t, ErrViewName, err)

	pending := listview.QueryState{
		SearchText: "kabila",
		Filters:    map[string]string{"status": "PENDING", "schoolId": "1"},
		Sort:       listview.Sort{Field: "createdAt", Direction: listview.Descending},
		Page:       4,
		PageSize:   25,
	}
	saved, err := repo.Save(ctx, "Members", " pending ", pending, "to review on mondays")
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "members", saved.Screen)
	assert.Equal(t, "pending", saved.Name)
	assert.Equal(t, 0, saved.Query.Page)
	assert.Equal(t, 25, saved.Query.PageSize)
	assert.Equal(t, pending.Filters, saved.Query.Filters)
	assert.Equal(t, clock, saved.CreatedAt)

	_, err = repo.Save(ctx, "members", "all", listview.QueryState{}, "")
	require.NoError(t, err)
	_, err = repo.Save(ctx, "invoices", "unpaid", listview.QueryState{Filters: map[string]string{"status": "PENDING"}}, "")
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, "members", "pending")
		require.NoError(t, err)
		assert.Equal(t, saved, got)

		all, err := repo.Get(ctx, "members", "all")
		require.NoError(t, err)
		assert.Equal(t, listview.Ascending, all.Query.Sort.Direction)
		assert.Empty(t, all.Query.Filters)
		assert.NotNil(t, all.Query.Filters)
		assert.Zero(t, all.Query.PageSize, "no page size pinned")
		assert.Empty(t, all.Note)

		_, err = repo.Get(ctx, "invoices", "pending")
		assert.True(t, errors.Is(err, ErrViewNotFound))
	})

	t.Run("overwrite", func(t *testing.T) {
		clock = clock.Add(time.Hour)
		pending.SearchText = "tshisekedi"
		updated, err := repo.Save(ctx, "members", "pending", pending, "")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, updated.ID)
		assert.Equal(t, "tshisekedi", updated.Query.SearchText)
		assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
		assert.Equal(t, clock, updated.UpdatedAt)
		assert.Empty(t, updated.Note)
	})

	t.Run("list", func(t *testing.T) {
		views, err := repo.List(ctx, "members")
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "all", views[0].Name)
		assert.Equal(t, "pending", views[1].Name)

		views, err = repo.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, views, 3)
		assert.Equal(t, "invoices", views[0].Screen)

		views, err = repo.List(ctx, "schools")
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "members", "all"))
		err := repo.Delete(ctx, "members", "all")
		assert.True(t, errors.Is(err, ErrViewNotFound))

		views, err := repo.List(ctx, "members")
		require.NoError(t, err)
		assert.Len(t, views, 1)
	})
}

// Package database persists the console's saved list views in sqlite or postgres.
package database

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/klabu/core"
)

// Engines
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

var ErrUnknownEngine = errors.New("unknown database engine")

var (
	//go:embed migrations
	migrationsFS embed.FS

	gooseMu sync.Mutex
)

// drivers maps an engine to its database/sql driver name.
var drivers = map[string]string{
	EngineSQLite:   "sqlite",
	EnginePostgres: "postgres",
}

// Open connects to the configured database and brings its schema up to date.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := Connect(ctx, conf.Database.Engine, conf.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err = Migrate(ctx, db, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens and pings a database without migrating it.
func Connect(ctx context.Context, engine, dsn string) (*sqlx.DB, error) {
	engine = core.CleanString(engine, true /* lower */)
	driver, ok := drivers[engine]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", engine)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.Errorf("%s dsn is required", engine)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", engine)
	}
	if engine == EngineSQLite {
		// writes are serialized by sqlite anyway; a single connection also keeps ":memory:" databases alive
		db.SetMaxOpenConns(1)
	}
	if err = ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate brings the schema of db up to date.
func Migrate(ctx context.Context, db *sqlx.DB, engine string) error {
	if err := RunMigrations(ctx, db.DB, engine, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// RunMigrations runs the goose command (up, down, status, ...) on the embedded migrations of `engine`.
func RunMigrations(ctx context.Context, db *sql.DB, engine, command string, args ...string) error {
	engine = core.CleanString(engine, true /* lower */)
	if _, ok := drivers[engine]; !ok {
		return errors.Wrapf(ErrUnknownEngine, "%q", engine)
	}

	// goose keeps its dialect and file system in package globals
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := goose.SetDialect(engine); err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)
	return goose.RunContext(ctx, command, db, path.Join("migrations", engine), args...)
}

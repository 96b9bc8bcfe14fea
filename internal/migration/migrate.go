package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/northseed/internal/database"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// migrateUp applies the pending migrations with golang-migrate, which keeps
// its version in schema_migrations.
func (m *Manager) migrateUp(ctx context.Context, db *sql.DB, migrations []*Migration) ([]*Migration, error) {
	src, err := iofs.New(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	defer src.Close()

	driver, release, err := migrateDriver(ctx, db, m.backend.Dialect())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	defer release()

	mg, err := migrate.NewWithInstance("iofs", src, m.backend.Dialect(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	mg.Log = migrateLogger{logger: m.logger}

	current, dirty, err := mg.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		current = 0
	case err != nil:
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return nil, fmt.Errorf("database is dirty at version %d, fix it and force the version", current)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			mg.GracefulStop <- true
		case <-done:
		}
	}()
	err = mg.Up()
	close(done)

	if errors.Is(err, migrate.ErrNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var applied []*Migration
	for _, migration := range migrations {
		if migration.Version > current {
			applied = append(applied, migration)
		}
	}
	return applied, nil
}

// migrateDriver builds the golang-migrate driver for dialect. Closing a
// driver built from the *sql.DB closes the handle too, so postgres and mysql
// run on a dedicated connection and sqlite, which holds none, is never
// closed here.
func migrateDriver(ctx context.Context, db *sql.DB, dialect string) (migratedb.Driver, func(), error) {
	switch dialect {
	case database.DialectSQLite:
		driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, err
		}
		return driver, func() {}, nil
	case database.DialectPostgres, database.DialectMySQL:
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		var driver migratedb.Driver
		if dialect == database.DialectPostgres {
			driver, err = migratepostgres.WithConnection(ctx, conn, &migratepostgres.Config{})
		} else {
			driver, err = migratemysql.WithConnection(ctx, conn, &migratemysql.Config{})
		}
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return driver, func() { driver.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

type migrateLogger struct {
	logger *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Rana718/northseed/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Open builds the backend selected by cfg, wrapped with retries.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, error) {
	var backend Backend

	switch cfg.Backend {
	case config.BackendProxy:
		url, token, err := cfg.GetProxyCredentials()
		if err != nil {
			return nil, err
		}
		backend = NewProxyBackend(url, token, cfg.Proxy.Timeout, logger)
	case config.BackendSQL:
		dbURL, err := cfg.GetDatabaseURL()
		if err != nil {
			return nil, err
		}
		db, dialect, err := OpenDB(ctx, cfg.Database.Provider, dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		backend = NewSQLBackend(db, dialect, logger)
	case config.BackendMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}

	return WithRetry(backend, RetryConfig{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
	}, logger), nil
}

// OpenDB opens and pings a database/sql handle for provider, returning the
// dialect the seeder should build statements for.
func OpenDB(ctx context.Context, provider, url string) (*sql.DB, string, error) {
	var driverName, dialect string
	switch provider {
	case "postgresql", "postgres":
		driverName, dialect = "pgx", DialectPostgres
	case "pq":
		driverName, dialect = "postgres", DialectPostgres
	case "mysql":
		driverName, dialect = "mysql", DialectMySQL
		url = mysqlDSN(url)
	case "sqlite", "sqlite3":
		driverName, dialect = "sqlite3", DialectSQLite
		url = sqliteDSN(url)
	default:
		return nil, "", fmt.Errorf("unsupported database provider: %s", provider)
	}

	db, err := sql.Open(driverName, url)
	if err != nil {
		return nil, "", err
	}

	if dialect == DialectSQLite {
		// A single connection keeps ":memory:" databases and write ordering sane.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

func sqliteDSN(url string) string {
	return withDSNParam(strings.TrimPrefix(url, "sqlite://"), "_foreign_keys", "on")
}

// mysqlDSN enables multi-statement execution, which migration files need.
func mysqlDSN(url string) string {
	return withDSNParam(strings.TrimPrefix(url, "mysql://"), "multiStatements", "true")
}

func withDSNParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}

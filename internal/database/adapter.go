package database

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
)

var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendRejected    = errors.New("backend rejected statement")
)

// Mode tells the backend what shape of result a statement should return. The
// names follow the sqlite-proxy protocol.
type Mode string

const (
	ModeRun    Mode = "run"
	ModeAll    Mode = "all"
	ModeGet    Mode = "get"
	ModeValues Mode = "values"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

type Statement struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
	Mode   Mode          `json:"method"`
}

type Result struct {
	Rows         [][]interface{}
	RowsAffected int64
}

// Backend is the persistence contract the seeder writes through.
type Backend interface {
	ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error)
	ExecuteBatch(ctx context.Context, statements []Statement) ([]*Result, error)
	RunMigrations(ctx context.Context, statements []string) error
	Dialect() string
	Close() error
}

// StatementBuilder returns a squirrel builder using the placeholder format of dialect.
func StatementBuilder(dialect string) squirrel.StatementBuilderType {
	if dialect == DialectPostgres {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// SQLBackend writes through database/sql to a directly reachable database.
type SQLBackend struct {
	db      *sql.DB
	dialect string
	logger  *zap.Logger
}

func NewSQLBackend(db *sql.DB, dialect string, logger *zap.Logger) *SQLBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLBackend{db: db, dialect: dialect, logger: logger}
}

func (s *SQLBackend) Dialect() string {
	return s.dialect
}

func (s *SQLBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying handle, mainly for verification queries.
func (s *SQLBackend) DB() *sql.DB {
	return s.db
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error) {
	result, err := execute(ctx, s.db, Statement{SQL: query, Params: params, Mode: mode})
	if err != nil {
		return nil, classifySQLError(err)
	}
	return result, nil
}

// ExecuteBatch runs all statements in one transaction.
func (s *SQLBackend) ExecuteBatch(ctx context.Context, statements []Statement) ([]*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifySQLError(err)
	}
	defer tx.Rollback()

	results := make([]*Result, 0, len(statements))
	for i, stmt := range statements {
		result, err := execute(ctx, tx, stmt)
		if err != nil {
			return nil, fmt.Errorf("batch statement %d: %w", i, classifySQLError(err))
		}
		results = append(results, result)
	}

	if err := tx.Commit(); err != nil {
		return nil, classifySQLError(err)
	}
	return results, nil
}

func (s *SQLBackend) RunMigrations(ctx context.Context, statements []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLError(err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, classifySQLError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classifySQLError(err)
	}
	s.logger.Debug("applied migration statements", zap.Int("count", len(statements)))
	return nil
}

func execute(ctx context.Context, conn execer, stmt Statement) (*Result, error) {
	switch stmt.Mode {
	case ModeAll, ModeValues, ModeGet:
		rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		values, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		if stmt.Mode == ModeGet && len(values) > 1 {
			values = values[:1]
		}
		return &Result{Rows: values}, nil
	default:
		res, err := conn.ExecContext(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			return nil, err
		}
		affected, _ := res.RowsAffected()
		return &Result{RowsAffected: affected}, nil
	}
}

func scanRows(rows *sql.Rows) ([][]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// classifySQLError marks connection-level failures as unavailable and
// everything else as rejected.
func classifySQLError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrBackendRejected, err)
}

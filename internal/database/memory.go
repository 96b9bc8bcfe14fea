package database

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const ident = `["'` + "`" + `]?(\w+)["'` + "`" + `]?`

var (
	insertRegex = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+` + ident + `\s*\(([^)]*)\)\s*VALUES`)
	deleteRegex = regexp.MustCompile(`(?is)^\s*DELETE\s+FROM\s+` + ident + `\s*;?\s*$`)
	createRegex = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?` + ident)
	selectRegex = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+` + ident + `\s*;?\s*$`)
)

// MemoryBackend keeps inserted rows in memory. It understands CREATE TABLE,
// multi-row INSERT with bound or literal values, unconditional DELETE and
// column SELECT statements. Other DDL is accepted only through RunMigrations.
type MemoryBackend struct {
	mu         sync.Mutex
	schema     map[string]bool
	tables     map[string][]map[string]interface{}
	statements []Statement
	migrations [][]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		schema: make(map[string]bool),
		tables: make(map[string][]map[string]interface{}),
	}
}

func (m *MemoryBackend) Dialect() string {
	return DialectSQLite
}

func (m *MemoryBackend) Close() error {
	return nil
}

func (m *MemoryBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(Statement{SQL: query, Params: params, Mode: mode}, false)
}

// ExecuteBatch applies all statements or none of them.
func (m *MemoryBackend) ExecuteBatch(ctx context.Context, statements []Statement) ([]*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restore := m.snapshot()
	results := make([]*Result, 0, len(statements))
	for i, stmt := range statements {
		result, err := m.apply(stmt, false)
		if err != nil {
			restore()
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// RunMigrations applies all statements or none of them and records the call.
func (m *MemoryBackend) RunMigrations(ctx context.Context, statements []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restore := m.snapshot()
	for i, query := range statements {
		if _, err := m.apply(Statement{SQL: query, Mode: ModeRun}, true); err != nil {
			restore()
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	m.migrations = append(m.migrations, append([]string(nil), statements...))
	return nil
}

func (m *MemoryBackend) snapshot() func() {
	schema := make(map[string]bool, len(m.schema))
	for name := range m.schema {
		schema[name] = true
	}
	tables := make(map[string][]map[string]interface{}, len(m.tables))
	for name, rows := range m.tables {
		tables[name] = rows
	}
	recorded := len(m.statements)

	return func() {
		m.schema = schema
		m.tables = tables
		m.statements = m.statements[:recorded]
	}
}

// apply runs one statement. ddl accepts statements the backend cannot
// interpret, such as CREATE INDEX, as no-ops.
func (m *MemoryBackend) apply(stmt Statement, ddl bool) (*Result, error) {
	if loc := insertRegex.FindStringSubmatchIndex(stmt.SQL); loc != nil {
		table := strings.ToLower(stmt.SQL[loc[2]:loc[3]])
		var columns []string
		for _, col := range strings.Split(stmt.SQL[loc[4]:loc[5]], ",") {
			columns = append(columns, strings.Trim(strings.TrimSpace(col), "\"'`"))
		}

		values := stmt.Params
		if len(values) == 0 {
			literals, err := parseLiterals(stmt.SQL[loc[1]:])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBackendRejected, err)
			}
			values = literals
		}
		if len(values) == 0 || len(values)%len(columns) != 0 {
			return nil, fmt.Errorf("%w: %d values for %d columns", ErrBackendRejected, len(values), len(columns))
		}

		rows := m.tables[table]
		for i := 0; i < len(values); i += len(columns) {
			row := make(map[string]interface{}, len(columns))
			for j, col := range columns {
				row[col] = values[i+j]
			}
			rows = append(rows, row)
		}
		m.tables[table] = rows
		m.statements = append(m.statements, stmt)
		return &Result{RowsAffected: int64(len(values) / len(columns))}, nil
	}

	if match := deleteRegex.FindStringSubmatch(stmt.SQL); match != nil {
		table := strings.ToLower(match[1])
		affected := len(m.tables[table])
		delete(m.tables, table)
		m.statements = append(m.statements, stmt)
		return &Result{RowsAffected: int64(affected)}, nil
	}

	if match := createRegex.FindStringSubmatch(stmt.SQL); match != nil {
		table := strings.ToLower(match[2])
		if m.schema[table] && match[1] == "" {
			return nil, fmt.Errorf("%w: table %s already exists", ErrBackendRejected, table)
		}
		m.schema[table] = true
		return &Result{}, nil
	}

	if match := selectRegex.FindStringSubmatch(stmt.SQL); match != nil {
		return m.selectRows(strings.ToLower(match[2]), match[1], stmt.Mode)
	}

	if ddl {
		return &Result{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported statement: %s", ErrBackendRejected, stmt.SQL)
}

func (m *MemoryBackend) selectRows(table, projection string, mode Mode) (*Result, error) {
	rows := m.tables[table]
	if !m.schema[table] && rows == nil {
		return nil, fmt.Errorf("%w: no such table: %s", ErrBackendRejected, table)
	}

	var out [][]interface{}
	if strings.EqualFold(strings.ReplaceAll(projection, " ", ""), "count(*)") {
		out = [][]interface{}{{int64(len(rows))}}
	} else {
		var columns []string
		for _, col := range strings.Split(projection, ",") {
			col = strings.Trim(strings.TrimSpace(col), "\"'`")
			if col == "*" {
				return nil, fmt.Errorf("%w: SELECT * is not supported", ErrBackendRejected)
			}
			columns = append(columns, col)
		}
		for _, row := range rows {
			values := make([]interface{}, len(columns))
			for i, col := range columns {
				values[i] = row[col]
			}
			out = append(out, values)
		}
	}

	if mode == ModeGet && len(out) > 1 {
		out = out[:1]
	}
	return &Result{Rows: out}, nil
}

// parseLiterals reads the value tuples of an INSERT without bound params.
// Quoted strings, integers, floats and NULL are supported.
func parseLiterals(values string) ([]interface{}, error) {
	var out []interface{}
	for i := 0; i < len(values); {
		c := values[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' || c == ',' || c == ';':
			i++
		case c == '\'':
			var b strings.Builder
			j := i + 1
			for ; j < len(values); j++ {
				if values[j] == '\'' {
					if j+1 < len(values) && values[j+1] == '\'' {
						b.WriteByte('\'')
						j++
						continue
					}
					break
				}
				b.WriteByte(values[j])
			}
			if j >= len(values) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			out = append(out, b.String())
			i = j + 1
		default:
			j := i
			for j < len(values) && !strings.ContainsRune(" \t\n\r(),;", rune(values[j])) {
				j++
			}
			token := values[i:j]
			if strings.EqualFold(token, "null") {
				out = append(out, nil)
			} else if n, err := strconv.ParseInt(token, 10, 64); err == nil {
				out = append(out, n)
			} else if f, err := strconv.ParseFloat(token, 64); err == nil {
				out = append(out, f)
			} else {
				return nil, fmt.Errorf("unsupported literal %q", token)
			}
			i = j
		}
	}
	return out, nil
}

// Rows returns a copy of the rows inserted into table.
func (m *MemoryBackend) Rows(table string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]interface{}(nil), m.tables[table]...)
}

func (m *MemoryBackend) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// HasTable reports whether a CREATE TABLE for table has been applied.
func (m *MemoryBackend) HasTable(table string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema[table]
}

func (m *MemoryBackend) Statements() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.statements...)
}

func (m *MemoryBackend) Migrations() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.migrations...)
}

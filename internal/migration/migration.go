package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Rana718/northseed/internal/database"
	"github.com/Rana718/northseed/internal/database/common"
	"github.com/golang-migrate/migrate/v4/source"
	"go.uber.org/zap"
)

var ErrMigrationFailed = errors.New("migration failed")

//go:embed sql/*/*.sql
var embedded embed.FS

// trackingTable records the migrations applied through the statement path.
const trackingTable = "_northseed_migrations"

// Migration is one up migration file named <version>_<name>.up.sql.
type Migration struct {
	Name       string
	Version    uint
	Content    string
	Checksum   string
	Statements []string
}

// Manager loads migration files and applies the pending ones through a
// backend. Backends with a database/sql handle are migrated by
// golang-migrate, the others through RunMigrations with a tracking table.
type Manager struct {
	backend database.Backend
	source  fs.FS
	logger  *zap.Logger
}

// NewManager uses the embedded migrations for the backend dialect, or the
// .sql files in dir when dir is set.
func NewManager(backend database.Backend, dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var src fs.FS
	if dir != "" {
		src = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embedded, path.Join("sql", backend.Dialect()))
		if err != nil {
			return nil, fmt.Errorf("no embedded migrations for dialect %s: %w", backend.Dialect(), err)
		}
		src = sub
	}

	return &Manager{backend: backend, source: src, logger: logger}, nil
}

// GetLocalMigrations returns the up migrations sorted by version. Down
// migrations are skipped.
func (m *Manager) GetLocalMigrations() ([]*Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []*Migration
	versions := make(map[uint]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		parsed, err := source.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("invalid migration file name %s: expected <version>_<name>.up.sql", name)
		}
		if parsed.Direction != source.Up {
			continue
		}
		if other, ok := versions[parsed.Version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, name, parsed.Version)
		}
		versions[parsed.Version] = name

		content, err := fs.ReadFile(m.source, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		migrations = append(migrations, &Migration{
			Name:       name,
			Version:    parsed.Version,
			Content:    string(content),
			Checksum:   calculateChecksum(string(content)),
			Statements: common.ParseSQLStatements(string(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Manager) ValidateMigration(migration *Migration) error {
	if len(migration.Statements) == 0 {
		return fmt.Errorf("migration %s is empty", migration.Name)
	}

	content := strings.ToLower(migration.Content)
	if strings.Contains(content, "drop database") {
		return fmt.Errorf("migration %s contains dangerous DROP DATABASE statement", migration.Name)
	}
	return nil
}

// Apply runs the migrations not yet applied to the backend and returns them.
// An up-to-date backend yields an empty slice. Any failure is wrapped in
// ErrMigrationFailed.
func (m *Manager) Apply(ctx context.Context) ([]*Migration, error) {
	migrations, err := m.GetLocalMigrations()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	if len(migrations) == 0 {
		return nil, fmt.Errorf("%w: no migration files found", ErrMigrationFailed)
	}
	for _, migration := range migrations {
		if err := m.ValidateMigration(migration); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	var applied []*Migration
	if db, ok := sqlHandle(m.backend); ok {
		applied, err = m.migrateUp(ctx, db, migrations)
	} else {
		applied, err = m.applyStatements(ctx, migrations)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	if len(applied) == 0 {
		m.logger.Info("no pending migrations")
	}
	for _, migration := range applied {
		m.logger.Info("applied migration",
			zap.String("name", migration.Name),
			zap.String("checksum", migration.Checksum[:12]),
			zap.Int("statements", len(migration.Statements)),
		)
	}
	return applied, nil
}

// applyStatements sends the pending migrations and their tracking rows in
// one RunMigrations call, so a failed migration leaves no record behind.
func (m *Manager) applyStatements(ctx context.Context, migrations []*Migration) ([]*Migration, error) {
	create := "CREATE TABLE IF NOT EXISTS " + trackingTable +
		" (name TEXT PRIMARY KEY, checksum TEXT NOT NULL, applied_at TEXT NOT NULL)"
	if _, err := m.backend.ExecuteStatement(ctx, create, nil, database.ModeRun); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", trackingTable, err)
	}

	result, err := m.backend.ExecuteStatement(ctx, "SELECT name, checksum FROM "+trackingTable, nil, database.ModeAll)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	recorded := make(map[string]string, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 {
			continue
		}
		recorded[fmt.Sprint(row[0])] = fmt.Sprint(row[1])
	}

	var pending []*Migration
	for _, migration := range migrations {
		checksum, ok := recorded[migration.Name]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if checksum != migration.Checksum {
			return nil, fmt.Errorf("migration %s was modified after it was applied", migration.Name)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	appliedAt := time.Now().UTC().Format(time.RFC3339)
	var statements []string
	for _, migration := range pending {
		statements = append(statements, migration.Statements...)
		statements = append(statements, fmt.Sprintf(
			"INSERT INTO %s (name, checksum, applied_at) VALUES (%s, %s, %s)",
			trackingTable, quote(migration.Name), quote(migration.Checksum), quote(appliedAt),
		))
	}

	if err := m.backend.RunMigrations(ctx, statements); err != nil {
		return nil, err
	}
	return pending, nil
}

// sqlHandle finds the database/sql handle behind backend, looking through
// wrappers such as the retrying backend.
func sqlHandle(backend database.Backend) (*sql.DB, bool) {
	for {
		if h, ok := backend.(interface{ DB() *sql.DB }); ok {
			return h.DB(), true
		}
		w, ok := backend.(interface{ Unwrap() database.Backend })
		if !ok {
			return nil, false
		}
		backend = w.Unwrap()
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func calculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

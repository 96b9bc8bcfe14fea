package cmd

import (
	"fmt"

	"github.com/Rana718/northseed/internal/database"
	"github.com/Rana718/northseed/internal/migration"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Northwind schema",
	Long: `Apply the pending schema migrations to the configured backend. The
embedded migrations for the backend dialect are used unless --dir or
migrations_path points at a directory of <version>_<name>.up.sql files.
Migrations that were already applied are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if migrateDir != "" {
			cfg.MigrationsPath = migrateDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx := cmd.Context()
		backend, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		return applyMigrations(cmd, backend, cfg.MigrationsPath, logger)
	},
}

func applyMigrations(cmd *cobra.Command, backend database.Backend, dir string, logger *zap.Logger) error {
	manager, err := migration.NewManager(backend, dir, logger)
	if err != nil {
		return fmt.Errorf("failed to create migration manager: %w", err)
	}

	color.Cyan("📦 Applying migrations...")
	applied, err := manager.Apply(cmd.Context())
	if err != nil {
		color.Red("❌ %v", err)
		return err
	}

	if len(applied) == 0 {
		color.Green("  ✅ Schema is up to date")
	}
	for _, m := range applied {
		color.Green("  ✅ %s (%d statements)", m.Name, len(m.Statements))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "Directory of .sql migration files")
}

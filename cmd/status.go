package cmd

import (
	"fmt"

	"github.com/Rana718/northseed/internal/database"
	"github.com/Rana718/northseed/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts of the seeded tables",
	Long: `Count the rows of every Northwind table on the configured backend.
Tables that do not exist yet are reported as missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx := cmd.Context()
		backend, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		qb := database.StatementBuilder(backend.Dialect())
		color.Cyan("📊 Table status (%s)", cfg.Backend)
		fmt.Println("═══════════════════════════════════")

		for _, entity := range seeder.SeedOrder {
			query, args, err := qb.Select("count(*)").From(entity.Table()).ToSql()
			if err != nil {
				return err
			}

			result, err := backend.ExecuteStatement(ctx, query, args, database.ModeGet)
			if err != nil {
				color.Yellow("  %-14s missing (%v)", entity, err)
				continue
			}
			var count interface{} = 0
			if len(result.Rows) > 0 && len(result.Rows[0]) > 0 {
				count = result.Rows[0][0]
			}
			fmt.Printf("  %-14s %v\n", entity, count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"fmt"
	"time"

	"github.com/Rana718/northseed/internal/config"
	"github.com/Rana718/northseed/internal/database"
	"github.com/Rana718/northseed/internal/seeder"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	seedProfile     string
	seedBatch       int
	seedValue       int64
	seedTruncate    bool
	seedDryRun      bool
	seedSkipMigrate bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with synthetic Northwind data",
	Long: `Generate customers, employees, orders, suppliers, products, order
details and shippers for a size profile and write them in batches.

The schema is migrated first unless --skip-migrate is set. A fixed --seed
makes the dataset reproducible. --dry-run writes to an in-memory backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		flags := cmd.Flags()
		if flags.Changed("profile") {
			cfg.Seed.Profile = seedProfile
		}
		if flags.Changed("batch") {
			cfg.Seed.Batch = seedBatch
		}
		if flags.Changed("seed") {
			cfg.Seed.Seed = seedValue
		}
		if flags.Changed("truncate") {
			cfg.Seed.Truncate = seedTruncate
		}
		if seedDryRun {
			cfg.Backend = config.BackendMemory
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		profile, err := cfg.Profile(cfg.Seed.Profile)
		if err != nil {
			return err
		}
		if err := seeder.ValidateProfile(profile); err != nil {
			return err
		}

		ctx := cmd.Context()
		backend, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		if !seedSkipMigrate {
			if err := applyMigrations(cmd, backend, cfg.MigrationsPath, logger); err != nil {
				return err
			}
			fmt.Println()
		}

		color.Cyan("📊 Profile: %s", cfg.Seed.Profile)
		report, err := seeder.NewSeeder(backend, logger).Seed(ctx, seeder.SeedConfig{
			Profile:  profile,
			Batch:    cfg.Seed.Batch,
			Seed:     cfg.Seed.Seed,
			Truncate: cfg.Seed.Truncate,
		})
		if err != nil {
			color.Red("❌ Seeding failed: %v", err)
			return err
		}

		printReport(report)
		return nil
	},
}

func printReport(report *seeder.Report) {
	fmt.Println()
	color.Cyan("📋 Summary (run %s)", report.RunID)
	for _, entity := range seeder.SeedOrder {
		fmt.Printf("  %-14s %8d rows  %6d batches\n", entity, report.Counts[entity], report.Flushes[entity])
	}
	fmt.Printf("  %-14s %8d rows\n", "total", report.Total())
	color.White("  seed %d, %s", report.Seed, report.Duration.Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedProfile, "profile", "p", "nano", "Size profile (see 'northseed profiles')")
	seedCmd.Flags().IntVar(&seedBatch, "batch", seeder.DefaultBatchThreshold, "Flush an entity buffer once it holds more than this many rows")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "Random seed (0 picks one from the clock)")
	seedCmd.Flags().BoolVar(&seedTruncate, "truncate", false, "Delete existing rows before seeding")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Generate into an in-memory backend")
	seedCmd.Flags().BoolVar(&seedSkipMigrate, "skip-migrate", false, "Do not apply schema migrations first")
}

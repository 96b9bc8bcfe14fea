package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rana718/northseed/internal/config"
	"github.com/Rana718/northseed/internal/database"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SeedConfig struct {
	Profile  config.Profile
	Batch    int   // Flush threshold per entity buffer
	Seed     int64 // 0 seeds from the clock
	Truncate bool  // Delete existing rows before seeding
}

type Seeder struct {
	backend database.Backend
	graph   *DependencyGraph
	logger  *zap.Logger
}

// Report summarizes one finished run.
type Report struct {
	RunID    uuid.UUID
	Seed     int64
	Counts   map[EntityType]int
	Flushes  map[EntityType]int
	Duration time.Duration
}

func (r *Report) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

func NewSeeder(backend database.Backend, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		backend: backend,
		graph:   DefaultGraph(),
		logger:  logger,
	}
}

// run is the state of one seeding run. Nothing in it outlives Seed.
type run struct {
	cfg       SeedConfig
	gen       *DataGenerator
	writer    *BatchWriter
	completed map[EntityType]bool
	counts    map[EntityType]int
}

// Seed generates and writes every entity of cfg.Profile in SeedOrder. Any
// error aborts the run; rows flushed before the failure stay written.
func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) (*Report, error) {
	start := time.Now()
	runID := uuid.New()
	logger := s.logger.With(zap.String("run_id", runID.String()))

	if err := ValidateProfile(cfg.Profile); err != nil {
		return nil, err
	}
	if err := s.graph.ValidateOrder(SeedOrder); err != nil {
		return nil, fmt.Errorf("invalid seed order: %w", err)
	}

	rnd := NewRandom(cfg.Seed)
	gen, err := NewDataGenerator(rnd, cfg.Profile, NewRegistry())
	if err != nil {
		return nil, err
	}

	r := &run{
		cfg:       cfg,
		gen:       gen,
		writer:    NewBatchWriter(s.backend, cfg.Batch, logger),
		completed: make(map[EntityType]bool),
		counts:    make(map[EntityType]int),
	}

	color.Cyan("🌱 Starting database seeding...")
	names := make([]string, len(SeedOrder))
	for i, entity := range SeedOrder {
		names[i] = string(entity)
	}
	color.Cyan("📋 Insertion order: %s", strings.Join(names, " → "))
	logger.Info("seeding started", zap.Int64("seed", rnd.Seed()), zap.Int("batch", r.writer.threshold))

	if cfg.Truncate {
		if err := s.truncateTables(ctx); err != nil {
			return nil, err
		}
	}

	for _, entity := range SeedOrder {
		if err := s.runPhase(ctx, r, entity); err != nil {
			color.Red("  ❌ %s failed: %v", entity, err)
			return nil, fmt.Errorf("failed to seed %s: %w", entity, err)
		}
	}

	if err := r.writer.FlushAll(ctx); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    runID,
		Seed:     rnd.Seed(),
		Counts:   r.counts,
		Flushes:  make(map[EntityType]int, len(SeedOrder)),
		Duration: time.Since(start),
	}
	for _, entity := range SeedOrder {
		report.Flushes[entity] = r.writer.Flushes(entity)
	}

	logger.Info("seeding finished", zap.Int("rows", report.Total()), zap.Duration("elapsed", report.Duration))
	color.Green("\n✅ Database seeding completed successfully!")
	return report, nil
}

// runPhase is one state of the run. It starts only after every upstream
// phase has completed and ends with its buffer flushed.
func (s *Seeder) runPhase(ctx context.Context, r *run, entity EntityType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, dep := range s.graph.Dependencies(entity) {
		if !r.completed[dep] {
			return fmt.Errorf("%w: %s requires %s", ErrRegistryPrecondition, entity, dep)
		}
	}

	color.Cyan("  📝 Seeding %s (%s)...", entity, targetLabel(r.cfg.Profile, entity))

	var err error
	switch entity {
	case Customers:
		err = r.seedCustomers(ctx)
	case Employees:
		err = r.seedEmployees(ctx)
	case Orders:
		err = r.seedOrders(ctx)
	case Suppliers:
		err = r.seedSuppliers(ctx)
	case Products:
		err = r.seedProducts(ctx)
	case OrderDetails:
		err = r.seedOrderDetails(ctx)
	case Shippers:
		err = r.seedShippers(ctx)
	default:
		err = fmt.Errorf("no generator for %s", entity)
	}
	if err != nil {
		return err
	}

	if err := r.writer.Flush(ctx, entity); err != nil {
		return err
	}
	r.completed[entity] = true

	s.logger.Debug("phase completed", zap.String("entity", string(entity)), zap.Int("rows", r.counts[entity]))
	color.Green("  ✅ %s seeded successfully (%d rows)", entity, r.counts[entity])
	return nil
}

func (r *run) add(ctx context.Context, rec Record) error {
	if err := r.writer.Add(ctx, rec); err != nil {
		return err
	}
	r.counts[rec.Entity()]++
	return nil
}

func (r *run) seedCustomers(ctx context.Context) error {
	for id := 1; id <= r.cfg.Profile.Customers; id++ {
		if err := r.add(ctx, r.gen.Customer(id)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedEmployees(ctx context.Context) error {
	for id := 1; id <= r.cfg.Profile.Employees; id++ {
		if err := r.add(ctx, r.gen.Employee(id)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedOrders(ctx context.Context) error {
	cursor := FirstOrderDate
	for id := 1; id <= r.cfg.Profile.Orders; id++ {
		var order Order
		var err error
		order, cursor, err = r.gen.Order(id, cursor)
		if err != nil {
			return err
		}
		if err := r.add(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedSuppliers(ctx context.Context) error {
	for id := 1; id <= r.cfg.Profile.Suppliers; id++ {
		if err := r.add(ctx, r.gen.Supplier(id)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedProducts(ctx context.Context) error {
	for id := 1; id <= r.cfg.Profile.Products; id++ {
		product, err := r.gen.Product(id)
		if err != nil {
			return err
		}
		if err := r.add(ctx, product); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) seedOrderDetails(ctx context.Context) error {
	for orderID := 1; orderID <= r.cfg.Profile.Orders; orderID++ {
		details, err := r.gen.OrderDetails(orderID)
		if err != nil {
			return err
		}
		for _, detail := range details {
			if err := r.add(ctx, detail); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) seedShippers(ctx context.Context) error {
	for id := 1; id <= r.cfg.Profile.Shippers; id++ {
		shipper, err := r.gen.Shipper(id)
		if err != nil {
			return err
		}
		if err := r.add(ctx, shipper); err != nil {
			return err
		}
	}
	return nil
}

// truncateTables deletes all rows in reverse seed order in one batch.
func (s *Seeder) truncateTables(ctx context.Context) error {
	color.Yellow("🗑️  Truncating tables...")

	qb := database.StatementBuilder(s.backend.Dialect())
	var statements []database.Statement
	for i := len(SeedOrder) - 1; i >= 0; i-- {
		query, args, err := qb.Delete(SeedOrder[i].Table()).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete for %s: %w", SeedOrder[i], err)
		}
		statements = append(statements, database.Statement{SQL: query, Params: args, Mode: database.ModeRun})
	}

	if _, err := s.backend.ExecuteBatch(ctx, statements); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	color.Green("✅ Tables truncated")
	return nil
}

// ValidateProfile rejects profiles whose dependent entities have no parents
// to reference.
func ValidateProfile(p config.Profile) error {
	counts := map[string]int{
		"employees": p.Employees, "customers": p.Customers, "orders": p.Orders,
		"products": p.Products, "suppliers": p.Suppliers, "shippers": p.Shippers,
	}
	for name, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %s count is negative (%d)", ErrInvalidProfile, name, n)
		}
	}

	if p.Orders > 0 && (p.Customers == 0 || p.Employees == 0) {
		return fmt.Errorf("%w: orders need at least one customer and one employee", ErrInvalidProfile)
	}
	if p.Orders > 0 && p.Products == 0 {
		return fmt.Errorf("%w: orders need at least one product for their details", ErrInvalidProfile)
	}
	if p.Products > 0 && p.Suppliers == 0 {
		return fmt.Errorf("%w: products need at least one supplier", ErrInvalidProfile)
	}
	if p.Shippers > 0 && p.Customers+p.Suppliers == 0 {
		return fmt.Errorf("%w: shippers need generated company names from customers or suppliers", ErrInvalidProfile)
	}
	return nil
}

func targetLabel(p config.Profile, entity EntityType) string {
	switch entity {
	case Customers:
		return fmt.Sprintf("%d records", p.Customers)
	case Employees:
		return fmt.Sprintf("%d records", p.Employees)
	case Orders:
		return fmt.Sprintf("%d records", p.Orders)
	case Suppliers:
		return fmt.Sprintf("%d records", p.Suppliers)
	case Products:
		return fmt.Sprintf("%d records", p.Products)
	case OrderDetails:
		return fmt.Sprintf("1-25 lines for each of %d orders", p.Orders)
	case Shippers:
		return fmt.Sprintf("%d records", p.Shippers)
	}
	return ""
}

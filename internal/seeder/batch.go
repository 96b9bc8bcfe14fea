package seeder

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/northseed/internal/database"
	"go.uber.org/zap"
)

// DefaultBatchThreshold is the buffer size above which a flush fires.
const DefaultBatchThreshold = 5

// BatchWriter buffers records per entity and writes each buffer as one
// multi-row INSERT once it holds more than threshold records. Flushes are
// synchronous, so at most threshold+1 records per entity sit in memory.
type BatchWriter struct {
	backend   database.Backend
	qb        squirrel.StatementBuilderType
	threshold int
	buffers   map[EntityType][]Record
	flushes   map[EntityType]int
	written   map[EntityType]int
	logger    *zap.Logger
}

func NewBatchWriter(backend database.Backend, threshold int, logger *zap.Logger) *BatchWriter {
	if threshold < 1 {
		threshold = DefaultBatchThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchWriter{
		backend:   backend,
		qb:        database.StatementBuilder(backend.Dialect()),
		threshold: threshold,
		buffers:   make(map[EntityType][]Record),
		flushes:   make(map[EntityType]int),
		written:   make(map[EntityType]int),
		logger:    logger,
	}
}

func (w *BatchWriter) Add(ctx context.Context, rec Record) error {
	entity := rec.Entity()
	w.buffers[entity] = append(w.buffers[entity], rec)

	if len(w.buffers[entity]) > w.threshold {
		return w.Flush(ctx, entity)
	}
	return nil
}

// Flush writes the buffer of entity. The buffer is kept when the write fails.
func (w *BatchWriter) Flush(ctx context.Context, entity EntityType) error {
	records := w.buffers[entity]
	if len(records) == 0 {
		return nil
	}

	query, args, err := w.insertSQL(entity, records)
	if err != nil {
		return err
	}

	if _, err := w.backend.ExecuteStatement(ctx, query, args, database.ModeRun); err != nil {
		return fmt.Errorf("failed to flush %d %s: %w", len(records), entity, err)
	}

	w.done(entity, len(records))
	return nil
}

// FlushAll writes every non-empty buffer in one backend batch, in seed order.
func (w *BatchWriter) FlushAll(ctx context.Context) error {
	var statements []database.Statement
	var entities []EntityType

	for _, entity := range w.pendingOrder() {
		records := w.buffers[entity]
		query, args, err := w.insertSQL(entity, records)
		if err != nil {
			return err
		}
		statements = append(statements, database.Statement{SQL: query, Params: args, Mode: database.ModeRun})
		entities = append(entities, entity)
	}

	switch len(statements) {
	case 0:
		return nil
	case 1:
		return w.Flush(ctx, entities[0])
	}

	if _, err := w.backend.ExecuteBatch(ctx, statements); err != nil {
		return fmt.Errorf("failed to flush remaining buffers: %w", err)
	}
	for _, entity := range entities {
		w.done(entity, len(w.buffers[entity]))
	}
	return nil
}

// pendingOrder lists entities with buffered records, known entities first in
// seed order.
func (w *BatchWriter) pendingOrder() []EntityType {
	var order []EntityType
	seen := make(map[EntityType]bool, len(SeedOrder))
	for _, entity := range SeedOrder {
		seen[entity] = true
		if len(w.buffers[entity]) > 0 {
			order = append(order, entity)
		}
	}
	for entity, records := range w.buffers {
		if !seen[entity] && len(records) > 0 {
			order = append(order, entity)
		}
	}
	return order
}

func (w *BatchWriter) insertSQL(entity EntityType, records []Record) (string, []interface{}, error) {
	insert := w.qb.Insert(entity.Table()).Columns(records[0].Columns()...)
	for _, rec := range records {
		insert = insert.Values(rec.Values()...)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert for %s: %w", entity, err)
	}
	return query, args, nil
}

func (w *BatchWriter) done(entity EntityType, n int) {
	w.buffers[entity] = w.buffers[entity][:0]
	w.flushes[entity]++
	w.written[entity] += n
	w.logger.Debug("flushed batch",
		zap.String("entity", string(entity)),
		zap.Int("rows", n),
		zap.Int("total", w.written[entity]),
	)
}

func (w *BatchWriter) Pending(entity EntityType) int {
	return len(w.buffers[entity])
}

func (w *BatchWriter) Flushes(entity EntityType) int {
	return w.flushes[entity]
}

func (w *BatchWriter) Written(entity EntityType) int {
	return w.written[entity]
}

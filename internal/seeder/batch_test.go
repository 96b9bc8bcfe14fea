package seeder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Rana718/northseed/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails the next failures calls to ExecuteStatement or
// ExecuteBatch and records how often each was used.
type flakyBackend struct {
	*database.MemoryBackend
	failures   int
	err        error
	statements int
	batches    int
}

func newFlakyBackend(failures int, err error) *flakyBackend {
	return &flakyBackend{MemoryBackend: database.NewMemoryBackend(), failures: failures, err: err}
}

func (f *flakyBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode database.Mode) (*database.Result, error) {
	f.statements++
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return f.MemoryBackend.ExecuteStatement(ctx, query, params, mode)
}

func (f *flakyBackend) ExecuteBatch(ctx context.Context, statements []database.Statement) ([]*database.Result, error) {
	f.batches++
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return f.MemoryBackend.ExecuteBatch(ctx, statements)
}

func shippers(n int) []Record {
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Shipper{ID: i + 1, CompanyName: "Acme", Phone: "555"}
	}
	return recs
}

func TestBatchWriterFlushesAboveThreshold(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(0, nil)
	w := NewBatchWriter(backend, 5, nil)

	recs := shippers(6)
	for _, rec := range recs[:5] {
		require.NoError(t, w.Add(ctx, rec))
	}
	assert.Equal(t, 0, backend.statements)
	assert.Equal(t, 5, w.Pending(Shippers))

	require.NoError(t, w.Add(ctx, recs[5]))
	assert.Equal(t, 1, backend.statements)
	assert.Equal(t, 1, w.Flushes(Shippers))
	assert.Equal(t, 0, w.Pending(Shippers))
	assert.Equal(t, 6, w.Written(Shippers))
	assert.Equal(t, 6, backend.Count("shippers"))
}

func TestBatchWriterExplicitFlush(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(0, nil)
	w := NewBatchWriter(backend, 5, nil)

	for _, rec := range shippers(5) {
		require.NoError(t, w.Add(ctx, rec))
	}
	require.NoError(t, w.Flush(ctx, Shippers))
	assert.Equal(t, 5, backend.Count("shippers"))

	// Flushing an empty buffer is a no-op.
	require.NoError(t, w.Flush(ctx, Shippers))
	assert.Equal(t, 1, backend.statements)
}

func TestBatchWriterInsertShape(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(0, nil)
	w := NewBatchWriter(backend, 5, nil)

	for _, rec := range shippers(3) {
		require.NoError(t, w.Add(ctx, rec))
	}
	require.NoError(t, w.Flush(ctx, Shippers))

	stmts := backend.Statements()
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0].SQL, "INSERT INTO shippers (id,company_name,phone) VALUES"))
	assert.Equal(t, 3, strings.Count(stmts[0].SQL, "(?,?,?)"))
	assert.Len(t, stmts[0].Params, 9)
}

func TestBatchWriterKeepsBufferOnFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(1, database.ErrBackendRejected)
	w := NewBatchWriter(backend, 5, nil)

	recs := shippers(6)
	for _, rec := range recs[:5] {
		require.NoError(t, w.Add(ctx, rec))
	}
	err := w.Add(ctx, recs[5])
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrBackendRejected))
	assert.Equal(t, 6, w.Pending(Shippers))
	assert.Equal(t, 0, w.Flushes(Shippers))

	require.NoError(t, w.Flush(ctx, Shippers))
	assert.Equal(t, 6, backend.Count("shippers"))
}

func TestBatchWriterFlushAllUsesOneBatch(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(0, nil)
	w := NewBatchWriter(backend, 5, nil)

	require.NoError(t, w.Add(ctx, Customer{ID: 1, CompanyName: "Acme"}))
	require.NoError(t, w.Add(ctx, Supplier{ID: 1, CompanyName: "Globex"}))
	require.NoError(t, w.Add(ctx, Shipper{ID: 1, CompanyName: "Acme"}))

	require.NoError(t, w.FlushAll(ctx))
	assert.Equal(t, 1, backend.batches)
	assert.Equal(t, 0, backend.statements)

	stmts := backend.Statements()
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0].SQL, "INSERT INTO customers")
	assert.Contains(t, stmts[1].SQL, "INSERT INTO suppliers")
	assert.Contains(t, stmts[2].SQL, "INSERT INTO shippers")

	for _, entity := range []EntityType{Customers, Suppliers, Shippers} {
		assert.Equal(t, 0, w.Pending(entity))
		assert.Equal(t, 1, w.Written(entity))
	}
}

func TestBatchWriterFlushAllSinglePending(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(0, nil)
	w := NewBatchWriter(backend, 5, nil)

	require.NoError(t, w.Add(ctx, Shipper{ID: 1, CompanyName: "Acme"}))
	require.NoError(t, w.FlushAll(ctx))
	assert.Equal(t, 0, backend.batches)
	assert.Equal(t, 1, backend.statements)

	require.NoError(t, w.FlushAll(ctx))
	assert.Equal(t, 1, backend.statements)
}

func TestBatchWriterDefaultThreshold(t *testing.T) {
	w := NewBatchWriter(database.NewMemoryBackend(), 0, nil)
	assert.Equal(t, DefaultBatchThreshold, w.threshold)
}

func TestBatchWriterPostgresPlaceholders(t *testing.T) {
	ctx := context.Background()
	backend := &dialectBackend{MemoryBackend: database.NewMemoryBackend(), dialect: database.DialectPostgres}
	w := NewBatchWriter(backend, 5, nil)

	require.NoError(t, w.Add(ctx, Shipper{ID: 1, CompanyName: "Acme", Phone: "1"}))
	require.NoError(t, w.Add(ctx, Shipper{ID: 2, CompanyName: "Acme", Phone: "2"}))
	require.NoError(t, w.Flush(ctx, Shippers))

	stmts := backend.Statements()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0].SQL, "($1,$2,$3),($4,$5,$6)")
}

type dialectBackend struct {
	*database.MemoryBackend
	dialect string
}

func (d *dialectBackend) Dialect() string { return d.dialect }

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInsertRows(t *testing.T) {
	m := NewMemoryBackend()
	result, err := m.ExecuteStatement(context.Background(),
		"INSERT INTO shippers (id,company_name,phone) VALUES (?,?,?),(?,?,?)",
		[]interface{}{1, "Acme", "555", 2, "Globex", "556"}, ModeRun)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsAffected)

	rows := m.Rows("shippers")
	require.Len(t, rows, 2)
	assert.Equal(t, "Globex", rows[1]["company_name"])
	assert.Equal(t, 2, rows[1]["id"])
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	_, err := m.ExecuteStatement(ctx, "INSERT INTO shippers (id) VALUES (?)", []interface{}{1}, ModeRun)
	require.NoError(t, err)

	result, err := m.ExecuteStatement(ctx, "DELETE FROM shippers", nil, ModeRun)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RowsAffected)
	assert.Equal(t, 0, m.Count("shippers"))
}

func TestMemoryBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()

	_, err := m.ExecuteBatch(ctx, []Statement{
		{SQL: "INSERT INTO customers (id) VALUES (?)", Params: []interface{}{1}},
		{SQL: "UPDATE customers SET id = 2"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.Equal(t, 0, m.Count("customers"))
	assert.Empty(t, m.Statements())
}

func TestMemoryRejectsParamMismatch(t *testing.T) {
	_, err := NewMemoryBackend().ExecuteStatement(context.Background(),
		"INSERT INTO shippers (id,phone) VALUES (?,?)", []interface{}{1}, ModeRun)
	assert.ErrorIs(t, err, ErrBackendRejected)
}

func TestMemoryRecordsMigrations(t *testing.T) {
	m := NewMemoryBackend()
	require.NoError(t, m.RunMigrations(context.Background(), []string{
		"CREATE TABLE a (id integer)",
		"CREATE INDEX a_id ON a (id)",
	}))
	assert.Equal(t, [][]string{{"CREATE TABLE a (id integer)", "CREATE INDEX a_id ON a (id)"}}, m.Migrations())
	assert.True(t, m.HasTable("a"))
}

func TestMemoryCreateTableTwice(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	require.NoError(t, m.RunMigrations(ctx, []string{"CREATE TABLE a (id integer)"}))

	_, err := m.ExecuteStatement(ctx, "CREATE TABLE IF NOT EXISTS a (id integer)", nil, ModeRun)
	require.NoError(t, err)

	err = m.RunMigrations(ctx, []string{"CREATE TABLE b (id integer)", "CREATE TABLE a (id integer)"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.Contains(t, err.Error(), "table a already exists")
	assert.False(t, m.HasTable("b"))
	assert.Len(t, m.Migrations(), 1)
}

func TestMemoryLiteralInsertAndSelect(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	require.NoError(t, m.RunMigrations(ctx, []string{
		"CREATE TABLE IF NOT EXISTS notes (name text, body text, size integer)",
		"INSERT INTO notes (name, body, size) VALUES ('a', 'it''s; fine', 3), ('b', NULL, 1.5)",
	}))

	result, err := m.ExecuteStatement(ctx, "SELECT name, body FROM notes", nil, ModeAll)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"a", "it's; fine"}, {"b", nil}}, result.Rows)

	result, err = m.ExecuteStatement(ctx, "SELECT size FROM notes", nil, ModeGet)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{int64(3)}}, result.Rows)

	result, err = m.ExecuteStatement(ctx, "SELECT count(*) FROM notes", nil, ModeGet)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{int64(2)}}, result.Rows)

	_, err = m.ExecuteStatement(ctx, "SELECT name FROM missing", nil, ModeAll)
	assert.ErrorIs(t, err, ErrBackendRejected)
}

func TestMemoryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryBackend().ExecuteStatement(ctx, "DELETE FROM a", nil, ModeRun)
	assert.ErrorIs(t, err, context.Canceled)
}

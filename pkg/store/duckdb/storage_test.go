package duckdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_CreatesDocumentTables(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDB(Settings{
		DbPath: dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	_, err = db.Exec(
		`INSERT INTO assets (id, doc) VALUES (?, ?)`,
		"asset-001", `{"id":"asset-001","asset_identifier":"host1.example.com"}`,
	)
	require.NoError(t, err)

	var identifier string
	err = db.QueryRow(
		`SELECT json_extract_string(doc, '$.asset_identifier') FROM assets WHERE id = ?`, "asset-001",
	).Scan(&identifier)
	require.NoError(t, err)
	assert.Equal(t, "host1.example.com", identifier)

	for _, table := range []string{AssetGroupsTable, ServicesTable, IndicatorsTable, AssetOwnersTable} {
		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		require.NoError(t, err, table)
		assert.Zero(t, count, table)
	}
}

func TestBootstrap_IsIdempotent(t *testing.T) {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Bootstrap(context.Background(), db))
	require.NoError(t, Bootstrap(context.Background(), db))
}

func TestTransactionContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTransaction(ctx))

	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Same(t, tx, GetTransaction(WithTransaction(ctx, tx)))
}

func TestInTransaction(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	count := func() int {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*) FROM assets").Scan(&n))
		return n
	}
	insert := func(id string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			_, err := Conn(ctx, db).ExecContext(ctx, "INSERT INTO assets (id, doc) VALUES (?, '{}')", id)
			return err
		}
	}

	// Given a failing unit of work, its writes are rolled back
	boom := errors.New("boom")
	err = InTransaction(ctx, db, func(ctx context.Context) error {
		require.NoError(t, insert("a-1")(ctx))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count())

	// Given a successful one, they are committed
	require.NoError(t, InTransaction(ctx, db, insert("a-2")))
	assert.Equal(t, 1, count())

	// Nested calls join the outer transaction
	require.NoError(t, InTransaction(ctx, db, func(ctx context.Context) error {
		outer := GetTransaction(ctx)
		return InTransaction(ctx, db, func(ctx context.Context) error {
			assert.Same(t, outer, GetTransaction(ctx))
			return insert("a-3")(ctx)
		})
	}))
	assert.Equal(t, 2, count())
}

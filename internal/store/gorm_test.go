package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	// Named shared-cache databases keep the schema visible across the pooled
	// connections while isolating tests from one another.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE currency_master (id TEXT PRIMARY KEY, code TEXT, name TEXT, status TEXT)`,
		`CREATE TABLE counterparty_txn_mapping (id TEXT PRIMARY KEY, rule_name TEXT, src_type TEXT, priority TEXT, status TEXT)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return NewGormStore(db)
}

func TestGormStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOrUpdate(ctx, TableCurrencyMaster,
		Row{PrimaryKey: "1", "code": "EUR", "name": "Euro", "status": "active"},
		Row{PrimaryKey: "2", "code": "USD", "name": "US Dollar", "status": "active"},
	))

	row, err := s.Load(ctx, TableCurrencyMaster, "1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "EUR", row["code"])

	// Update path: same key, changed field.
	require.NoError(t, s.SaveOrUpdate(ctx, TableCurrencyMaster,
		Row{PrimaryKey: "1", "code": "EUR", "name": "Euro", "status": "inactive"}))
	row, err = s.Load(ctx, TableCurrencyMaster, "1")
	require.NoError(t, err)
	assert.Equal(t, "inactive", row["status"])

	rows, err := s.Find(ctx, TableCurrencyMaster, "status = ?", []any{"active"}, "code", false, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "USD", rows[0]["code"])

	require.NoError(t, s.Delete(ctx, TableCurrencyMaster, "2"))
	row, err = s.Load(ctx, TableCurrencyMaster, "2")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGormStoreTranslatesLogicalColumns(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	// The mapping table stores source_type in a src_type column; callers only
	// ever see the logical name.
	require.NoError(t, s.SaveOrUpdate(ctx, TableCpTxnMapping,
		Row{PrimaryKey: "R1", "rule_name": "wires", "source_type": "BANK", "priority": "10", "status": "active"}))

	rows, err := s.Find(ctx, TableCpTxnMapping, "source_type = ?", []any{"BANK"}, "priority", false, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BANK", rows[0]["source_type"])
	_, physicalLeaked := rows[0]["src_type"]
	assert.False(t, physicalLeaked)
}

func TestGormStoreUnknownTable(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Find(ctx, "no_such_table", "", nil, "", false, 0, 0)
	assert.ErrorIs(t, err, ErrUnknownTable)

	err = s.SaveOrUpdate(ctx, "no_such_table", Row{PrimaryKey: "1"})
	assert.ErrorIs(t, err, ErrUnknownTable)

	err = s.Delete(ctx, "no_such_table", "1")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestTranslateWhere(t *testing.T) {
	def := tableDefs[TableCpTxnMapping]

	got, err := translateWhere(def, "source_type = ? AND status = ?")
	require.NoError(t, err)
	assert.Equal(t, "src_type = ? AND status = ?", got)

	got, err = translateWhere(def, "priority >= ? OR priority <= ?")
	require.NoError(t, err)
	assert.Equal(t, "priority >= ? OR priority <= ?", got)

	_, err = translateWhere(def, "status = ? AND priority = ? OR id = ?")
	assert.Error(t, err)

	_, err = translateWhere(def, "status IN (?)")
	assert.Error(t, err)
}

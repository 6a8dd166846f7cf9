package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_UnsupportedScheme(t *testing.T) {
	_, err := Connect("mysql://localhost/test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DATABASE_URL scheme")
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"memory", ":memory:", ":memory:?_foreign_keys=on&_busy_timeout=5000"},
		{"empty defaults to memory", "", ":memory:?_foreign_keys=on&_busy_timeout=5000"},
		{"file", "/var/lib/tillsync/cache.db", "/var/lib/tillsync/cache.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
		{"file with params", "cache.db?cache=shared", "cache.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqliteDSN(tt.path))
		})
	}
}

func TestRunMigrations_SQLite(t *testing.T) {
	db, err := Connect("sqlite://:memory:")
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, RunMigrations(db))
	// second run is a no-op
	require.NoError(t, RunMigrations(db))

	for _, table := range []string{
		"pending_operations",
		"sync_metadata",
		"stocks",
		"customers",
		"transactions",
		"bulk_credit_payments",
		"billings",
		"billing_items",
		"billing_payments",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

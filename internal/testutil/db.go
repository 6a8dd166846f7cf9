// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/database"
)

// NewDB returns a migrated in-memory SQLite store that is closed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	require.NoError(t, database.RunMigrations(db))
	return db
}

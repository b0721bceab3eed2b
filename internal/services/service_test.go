package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-be/internal/database"
)

// newTestDB opens an in-memory sqlite database with the full schema.
// Pool size is pinned to one connection so :memory: stays one database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { db.Close() })
	return db
}

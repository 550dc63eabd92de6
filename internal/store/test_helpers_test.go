package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stateshift/internal/state"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDoc(t *testing.T, s string) state.Document {
	t.Helper()
	d, err := state.Parse([]byte(s))
	require.NoError(t, err, "parse %s", s)
	return d
}

// tableColumns lists a table's columns in declaration order.
func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryNames(t, db, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
}

// sqliteObjects lists schema objects of a kind, optionally limited to one table.
func sqliteObjects(t *testing.T, db *sql.DB, kind, table string) []string {
	t.Helper()
	return queryNames(t, db,
		"SELECT name FROM sqlite_master WHERE type = ? AND (? = '' OR tbl_name = ?) AND name NOT LIKE 'sqlite_%'",
		kind, table, table)
}

func queryNames(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

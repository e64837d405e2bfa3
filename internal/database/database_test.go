package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT * FROM persons WHERE role = ? AND section = ?"
	assert.Equal(t, q, Rebind("sqlite", q))
	assert.Equal(t, "SELECT * FROM persons WHERE role = $1 AND section = $2", Rebind("postgres", q))
}

func TestOpenAppliesSchemaOnce(t *testing.T) {
	conn, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("INSERT INTO persons (name, role) VALUES ('Ana', 'lider')")
	require.NoError(t, err)

	// A second run must skip the applied version
	require.NoError(t, NewMigrationManager(conn, "sqlite").RunMigrations())

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&n))
	assert.Equal(t, 2, n)

	var rev int
	require.NoError(t, conn.QueryRow("SELECT revision FROM data_revision WHERE id = 1").Scan(&rev))
	assert.Equal(t, 1, rev)
}

func TestOpenRejectsUnknownRole(t *testing.T) {
	conn, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("INSERT INTO persons (name, role) VALUES ('Ana', 'capitan')")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\nCREATE INDEX i ON a(x);\n")
	assert.Len(t, stmts, 2)
}

func TestPendingAfterOpen(t *testing.T) {
	conn, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	m := NewMigrationManager(conn, "sqlite")
	all, err := m.Available()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "001_create_persons", all[0].Name)

	pending, err := m.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations
var migrationFS embed.FS

// Migration is one versioned schema file
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager applies the embedded schema for one driver
type MigrationManager struct {
	db     *sql.DB
	driver string
	files  fs.FS
	logger *zap.Logger
}

// NewMigrationManager creates a migration manager for the embedded schema of driver
func NewMigrationManager(db *sql.DB, driver string) *MigrationManager {
	return &MigrationManager{
		db:     db,
		driver: driverName(driver),
		files:  migrationFS,
		logger: zap.NewNop(),
	}
}

func (m *MigrationManager) trackingDDL() string {
	appliedAt := "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if m.driver == "postgres" {
		appliedAt = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}
	return "CREATE TABLE IF NOT EXISTS migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL, applied_at " + appliedAt + ")"
}

// Applied returns the versions already recorded in the migrations table
func (m *MigrationManager) Applied(ctx context.Context) (map[int]bool, error) {
	if _, err := m.db.ExecContext(ctx, m.trackingDDL()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Available lists the driver's schema files ordered by version.
// Files are named NNN_description.sql.
func (m *MigrationManager) Available() ([]Migration, error) {
	dir := path.Join("migrations", m.driver)
	entries, err := fs.ReadDir(m.files, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for driver %s: %w", m.driver, err)
	}

	var out []Migration
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".sql")
		if e.IsDir() || !ok {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has no numeric version", e.Name())
		}
		body, err := fs.ReadFile(m.files, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending returns the migrations that have not been applied yet
func (m *MigrationManager) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	all, err := m.Available()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mg := range all {
		if !applied[mg.Version] {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

// apply runs one migration and records it in the same transaction
func (m *MigrationManager) apply(mg Migration) error {
	return Transaction(m.db, func(tx *sql.Tx) error {
		for _, stmt := range splitStatements(mg.SQL) {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("migration %d: %w", mg.Version, err)
			}
		}
		_, err := tx.Exec(Rebind(m.driver, "INSERT INTO migrations (version, name) VALUES (?, ?)"), mg.Version, mg.Name)
		return err
	})
}

// RunMigrations applies every pending migration in version order
func (m *MigrationManager) RunMigrations() error {
	pending, err := m.Pending(context.Background())
	if err != nil {
		return err
	}
	for _, mg := range pending {
		if err := m.apply(mg); err != nil {
			return err
		}
		m.logger.Info("applied migration", zap.Int("version", mg.Version), zap.String("name", mg.Name))
	}
	return nil
}

// splitStatements splits a schema file on statements ending a line with ';'
func splitStatements(sqlText string) []string {
	var out []string
	for _, part := range strings.Split(sqlText, ";\n") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

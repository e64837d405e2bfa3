package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	db     *sql.DB
	driver string
	once   sync.Once
)

// Config holds database configuration
type Config struct {
	Driver string // sqlite or postgres
	Path   string // sqlite file or postgres DSN
	Logger *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Open opens a connection pool for the configured driver and applies the schema
func Open(cfg Config) (*sql.DB, error) {
	name := driverName(cfg.Driver)
	dsn := cfg.Path
	if name == "sqlite" && cfg.Path != ":memory:" && !strings.Contains(dsn, "?") {
		// pragmas in the DSN apply to every pooled connection
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	conn, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}

	if name == "sqlite" {
		// In-memory databases live per connection
		if cfg.Path == ":memory:" {
			conn.SetMaxOpenConns(1)
		} else {
			conn.SetMaxOpenConns(10)
			conn.SetMaxIdleConns(5)
			if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to enable WAL: %w", err)
			}
		}
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		conn.SetMaxOpenConns(50)
		conn.SetMaxIdleConns(25)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m := NewMigrationManager(conn, name)
	m.logger = cfg.logger()
	if err := m.RunMigrations(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Init initializes the process-wide database connection
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		db, err = Open(cfg)
		if err != nil {
			return
		}
		driver = driverName(cfg.Driver)
		cfg.logger().Info("database initialized", zap.String("driver", driver))
	})

	return err
}

// GetDB returns the database instance
func GetDB() *sql.DB {
	if db == nil {
		panic("database not initialized, call Init first")
	}
	return db
}

// Driver returns the driver of the process-wide connection
func Driver() string {
	return driver
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

func driverName(d string) string {
	switch strings.ToLower(d) {
	case "postgres", "postgresql", "pg":
		return "postgres"
	default:
		return "sqlite"
	}
}

// Rebind rewrites '?' placeholders into the driver's bind syntax
func Rebind(driver, query string) string {
	if driverName(driver) != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Transaction executes a function within a database transaction
func Transaction(conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

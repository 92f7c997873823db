package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config holds database configuration
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the database file for the sqlite driver.
	Path string
	// Schema names the table layout preset of the element store.
	Schema string
}

// Validate checks that the driver is known and has what it needs
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL:
		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("database host is required for driver %s", c.Driver)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("database path is required for driver %s", c.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	return nil
}

// Connection wraps the database handle of the configured driver.
// Pool is set for postgres, SQL for mysql and sqlite.
type Connection struct {
	Driver string
	Pool   *pgxpool.Pool
	SQL    *sql.DB
}

// NewConnection creates a new database connection
func NewConnection(ctx context.Context, config Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Driver == DriverPostgres {
		return newPostgresConnection(ctx, config)
	}
	return newSQLConnection(ctx, config)
}

func newPostgresConnection(ctx context.Context, config Config) (*Connection, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings - more conservative to avoid connection issues
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Minute * 30
	poolConfig.MaxConnIdleTime = time.Minute * 5
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{Driver: DriverPostgres, Pool: pool}, nil
}

func newSQLConnection(ctx context.Context, config Config) (*Connection, error) {
	dsn := config.Path
	if config.Driver == DriverMySQL {
		dsn = buildMySQLDSN(config)
	}

	handle, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", config.Driver, err)
	}
	handle.SetMaxOpenConns(5)
	handle.SetMaxIdleConns(2)
	handle.SetConnMaxLifetime(30 * time.Minute)
	if isMemorySQLite(config) {
		// every connection to :memory: opens a separate empty database
		handle.SetMaxOpenConns(1)
		handle.SetConnMaxLifetime(0)
	}

	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{Driver: config.Driver, SQL: handle}, nil
}

func isMemorySQLite(config Config) bool {
	return config.Driver == DriverSQLite &&
		(config.Path == ":memory:" || strings.Contains(config.Path, "mode=memory"))
}

// buildMySQLDSN formats user:password@tcp(host:port)/dbname with parseTime
func buildMySQLDSN(config Config) string {
	port := config.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		config.User, config.Password, config.Host, port, config.DBName,
	)
	if config.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// Ping checks the underlying handle
func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool != nil {
		return c.Pool.Ping(ctx)
	}
	if c.SQL != nil {
		return c.SQL.PingContext(ctx)
	}
	return fmt.Errorf("connection is closed")
}

// Close closes the database connection
func (c *Connection) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.SQL != nil {
		_ = c.SQL.Close()
	}
}

// DefaultConfig returns a default database configuration
func DefaultConfig() Config {
	return Config{
		Driver:   DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "admin",
		DBName:   "elements",
		SSLMode:  "disable",
		Schema:   "generic",
	}
}

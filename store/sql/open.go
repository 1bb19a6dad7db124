package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-admin-client/core"
	"github.com/goliatone/go-admin-client/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-admin-client"
}

// Database is an opened, migrated persistence client plus its store factory.
type Database struct {
	Client  *persistence.Client
	Factory *RepositoryFactory
	Dialect string
}

// Open connects to the configured driver, applies the embedded migrations for
// its dialect and returns the store factory.
func Open(ctx context.Context, config core.StoreConfig) (*Database, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dialect, driverName, bunDialect, err := resolveDriver(config.Driver)
	if err != nil {
		return nil, err
	}
	dsn := strings.TrimSpace(config.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required for driver %q", config.Driver)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driverName, err)
	}
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: driverName, server: dsn}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	schema, err := migrations.For(dialect)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	client.RegisterSQLMigrations(schema)
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	factory, err := NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Database{Client: client, Factory: factory, Dialect: dialect}, nil
}

func (d *Database) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func resolveDriver(driver string) (string, string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return migrations.DialectSQLite, "sqlite3", sqlitedialect.New(), nil
	case "postgres", "postgresql", "pg":
		return migrations.DialectPostgres, "postgres", pgdialect.New(), nil
	default:
		return "", "", nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

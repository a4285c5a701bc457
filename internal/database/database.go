package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dataverse-tools/schema-harvester/internal/config"
)

// SchemaProber defines the interface for database operations needed by the
// harvester. It is the seam tests substitute with a fake session.
type SchemaProber interface {
	DescribeExternalLocation(ctx context.Context, location string) ([]ColumnInfo, error)
	ListOnlineDatabases(ctx context.Context) ([]string, error)
	CollectDatabaseUsage(ctx context.Context, dbName string) ([]UsageRow, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ SchemaProber = (*DB)(nil)

// DB holds the database connection pool and dialect handler. It is acquired
// once per run and released on all exit paths by the caller.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
	Harvest config.HarvestConfig
}

// ColumnInfo is one column of an inferred result shape, in the order the
// engine reported it. Ordinal is zero-based.
type ColumnInfo struct {
	Ordinal  int
	Name     string
	DataType string
}

// UsageRow is one (schema, table, row_count) grouping of a database's
// allocation statistics. Sizes are megabytes.
type UsageRow struct {
	SchemaName  string
	TableName   string
	RowCount    int64
	DataSizeMB  float64
	UsedSpaceMB float64
	FreeSpaceMB float64
}

// DialectHandler is implemented per engine dialect and registered by the
// dialect package's init function.
type DialectHandler interface {
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	DescribeExternalLocation(ctx context.Context, db *DB, location string) ([]ColumnInfo, error)
	ListOnlineDatabases(ctx context.Context, db *DB) ([]string, error)
	CollectDatabaseUsage(ctx context.Context, db *DB, dbName string) ([]UsageRow, error)
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		log.Printf("WARN: Dialect handler for '%s' is being overwritten.", dialect)
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

func New(cfg config.DatabaseConfig, harvest config.HarvestConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	ctx := context.Background()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
		Harvest: harvest,
	}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	log.Println("WARN: Attempted to close a nil database connection pool.")
	return nil
}

func (db *DB) DescribeExternalLocation(ctx context.Context, location string) ([]ColumnInfo, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.DescribeExternalLocation(ctx, db, location)
}

func (db *DB) ListOnlineDatabases(ctx context.Context) ([]string, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.ListOnlineDatabases(ctx, db)
}

func (db *DB) CollectDatabaseUsage(ctx context.Context, dbName string) ([]UsageRow, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler.CollectDatabaseUsage(ctx, db, dbName)
}

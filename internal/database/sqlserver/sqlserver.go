/*
 * Copyright 2025 The schema-harvester Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/dataverse-tools/schema-harvester/internal/config"
	"github.com/dataverse-tools/schema-harvester/internal/database"
	mssql "github.com/denisenkom/go-mssqldb"
)

// sqlServerHandler implements database.DialectHandler for SQL Server and
// Azure Synapse serverless endpoints.
type sqlServerHandler struct{}

var _ database.DialectHandler = (*sqlServerHandler)(nil)

type csqlDialer struct {
	dialer     *cloudsqlconn.Dialer
	connName   string
	usePrivate bool
}

// DialContext adheres to the mssql.Dialer interface.
func (c *csqlDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	var opts []cloudsqlconn.DialOption
	if c.usePrivate {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}
	return c.dialer.Dial(ctx, c.connName, opts...)
}

// CreateCloudSQLPool creates a pool routed through the Cloud SQL connector.
func (h sqlServerHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	// WithLazyRefresh() performs certificate refresh when needed rather
	// than on a scheduled interval.
	dialer, err := cloudsqlconn.NewDialer(context.Background(), cloudsqlconn.WithLazyRefresh())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}
	connector, err := mssql.NewConnector(fmt.Sprintf("sqlserver://%s:%s@localhost:1433?database=%s&dial=cloudsqlconn&instance=%s",
		cfg.User, cfg.Password, cfg.DBName, cfg.CloudSQLInstanceConnectionName))
	if err != nil {
		return nil, fmt.Errorf("mssql.NewConnector: %w", err)
	}
	connector.Dialer = &csqlDialer{
		dialer:     dialer,
		connName:   cfg.CloudSQLInstanceConnectionName,
		usePrivate: cfg.UsePrivateIP,
	}

	return sql.OpenDB(connector), nil
}

// CreateStandardPool creates a standard SQL Server connection pool.
func (h sqlServerHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	port := cfg.Port
	if port == 0 {
		port = 1433 // Default SQL Server port
	}
	connStr := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		cfg.User, cfg.Password, cfg.Host, port, cfg.DBName)

	dbPool, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open (standard sqlserver): %w", err)
	}
	return dbPool, nil
}

// QuoteIdentifier for SQL Server.
// Square brackets are standard; a closing bracket inside the name is
// escaped by doubling it.
func (h sqlServerHandler) QuoteIdentifier(name string) string {
	return fmt.Sprintf("[%s]", strings.ReplaceAll(name, "]", "]]"))
}

const describeQuery = `
	SELECT r.column_ordinal - 1 AS column_ordinal, r.name, r.system_type_name
	FROM sys.dm_exec_describe_first_result_set(@stmt, NULL, 0) AS r
	WHERE r.is_hidden = 0
	ORDER BY r.column_ordinal
`

// DescribeExternalLocation asks the engine to infer the result shape of a
// synthetic select over the wildcarded location, without materializing any
// rows. The engine samples the first matching file, so the returned columns
// are a representative schema, not a union across all partitions.
func (h sqlServerHandler) DescribeExternalLocation(ctx context.Context, db *database.DB, location string) ([]database.ColumnInfo, error) {
	escape := func(s string) string { return strings.ReplaceAll(s, "'", "''") }
	stmt := fmt.Sprintf("SELECT TOP 0 * FROM OPENROWSET(BULK '%s', DATA_SOURCE = '%s', FORMAT = '%s') AS src",
		escape(location), escape(db.Harvest.DataSource), escape(db.Harvest.FileFormat))

	rows, err := db.Pool.QueryContext(ctx, describeQuery, sql.Named("stmt", stmt))
	if err != nil {
		return nil, fmt.Errorf("error describing external location %s: %w", location, err)
	}
	defer rows.Close()

	var columns []database.ColumnInfo
	for rows.Next() {
		var (
			col      database.ColumnInfo
			name     sql.NullString
			dataType sql.NullString
		)
		if err := rows.Scan(&col.Ordinal, &name, &dataType); err != nil {
			return nil, fmt.Errorf("error scanning column description: %w", err)
		}
		col.Name = name.String
		col.DataType = dataType.String
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column descriptions: %w", err)
	}
	if len(columns) == 0 {
		// The function returns an empty set instead of an error when the
		// statement cannot be described (missing path, unreadable file).
		return nil, fmt.Errorf("engine could not describe result set for location %s", location)
	}
	return columns, nil
}

// ListOnlineDatabases returns online, non-system databases visible to the
// current connection, sorted by name.
func (h sqlServerHandler) ListOnlineDatabases(ctx context.Context, db *database.DB) ([]string, error) {
	query := "SELECT name FROM sys.databases WHERE state = 0 AND database_id > 4 ORDER BY name"
	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating database rows: %w", err)
	}
	return names, nil
}

// usageQueryTemplate aggregates allocation-unit pages per (schema, table,
// row count) grouping. Page counts are converted to MB (8 KB pages).
const usageQueryTemplate = `
	SELECT
		s.name AS schema_name,
		t.name AS table_name,
		p.rows AS row_count,
		CAST(SUM(a.total_pages) * 8.0 / 1024 AS DECIMAL(18,2)) AS data_size_mb,
		CAST(SUM(a.used_pages) * 8.0 / 1024 AS DECIMAL(18,2)) AS used_space_mb,
		CAST((SUM(a.total_pages) - SUM(a.used_pages)) * 8.0 / 1024 AS DECIMAL(18,2)) AS free_space_mb
	FROM %[1]s.sys.tables t
	JOIN %[1]s.sys.schemas s ON t.schema_id = s.schema_id
	JOIN %[1]s.sys.indexes i ON t.object_id = i.object_id
	JOIN %[1]s.sys.partitions p ON i.object_id = p.object_id AND i.index_id = p.index_id
	JOIN %[1]s.sys.allocation_units a ON p.partition_id = a.container_id
	GROUP BY s.name, t.name, p.rows
`

// CollectDatabaseUsage runs the allocation aggregation against one database.
// The database name cannot be parameterized in a cross-database reference,
// so it is bracket-quoted; names come from ListOnlineDatabases, never from
// user input.
func (h sqlServerHandler) CollectDatabaseUsage(ctx context.Context, db *database.DB, dbName string) ([]database.UsageRow, error) {
	query := fmt.Sprintf(usageQueryTemplate, h.QuoteIdentifier(dbName))

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying usage for database %s: %w", dbName, err)
	}
	defer rows.Close()

	var usage []database.UsageRow
	for rows.Next() {
		var u database.UsageRow
		if err := rows.Scan(&u.SchemaName, &u.TableName, &u.RowCount, &u.DataSizeMB, &u.UsedSpaceMB, &u.FreeSpaceMB); err != nil {
			return nil, fmt.Errorf("error scanning usage row for database %s: %w", dbName, err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage rows for database %s: %w", dbName, err)
	}
	return usage, nil
}

func init() {
	database.RegisterDialectHandler("sqlserver", sqlServerHandler{})
	database.RegisterDialectHandler("cloudsqlsqlserver", sqlServerHandler{})
}

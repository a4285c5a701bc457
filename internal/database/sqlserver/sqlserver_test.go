package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dataverse-tools/schema-harvester/internal/config"
	"github.com/dataverse-tools/schema-harvester/internal/database"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	db := &database.DB{
		Pool: mockDB,
		Harvest: config.HarvestConfig{
			DataSource: "ExternalConnection_DynamicsCE_ADL",
			FileFormat: "PARQUET",
		},
	}
	return db, mock, func() { mockDB.Close() }
}

func TestDescribeExternalLocation(t *testing.T) {
	location := "deltalake/account_partitioned/PartitionId=*/*.snappy.parquet"
	wantStmt := "SELECT TOP 0 * FROM OPENROWSET(BULK 'deltalake/account_partitioned/PartitionId=*/*.snappy.parquet', DATA_SOURCE = 'ExternalConnection_DynamicsCE_ADL', FORMAT = 'PARQUET') AS src"

	tests := []struct {
		name          string
		expectedCols  []database.ColumnInfo
		expectedError string
		mockSetup     func(sqlmock.Sqlmock)
	}{
		{
			name: "Success with inferred columns",
			expectedCols: []database.ColumnInfo{
				{Ordinal: 0, Name: "Id", DataType: "varchar(8000)"},
				{Ordinal: 1, Name: "name", DataType: "nvarchar(4000)"},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"column_ordinal", "name", "system_type_name"}).
					AddRow(0, "Id", "varchar(8000)").
					AddRow(1, "name", "nvarchar(4000)")
				mock.ExpectQuery(`dm_exec_describe_first_result_set`).
					WithArgs(sql.Named("stmt", wantStmt)).
					WillReturnRows(rows)
			},
		},
		{
			name:          "Undescribable location yields an error",
			expectedError: "engine could not describe result set",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"column_ordinal", "name", "system_type_name"})
				mock.ExpectQuery(`dm_exec_describe_first_result_set`).
					WithArgs(sql.Named("stmt", wantStmt)).
					WillReturnRows(rows)
			},
		},
		{
			name:          "Query error",
			expectedError: "error describing external location",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`dm_exec_describe_first_result_set`).
					WithArgs(sql.Named("stmt", wantStmt)).
					WillReturnError(errors.New("external data source not found"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, closeFn := newMockDB(t)
			defer closeFn()

			tt.mockSetup(mock)

			handler := sqlServerHandler{}
			result, err := handler.DescribeExternalLocation(context.Background(), db, location)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("Expected error containing '%s', but got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("Expected error containing '%s', got: %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error, but got: %v", err)
				}
				if len(result) != len(tt.expectedCols) {
					t.Fatalf("Expected %d columns, got %d", len(tt.expectedCols), len(result))
				}
				for i, want := range tt.expectedCols {
					if result[i] != want {
						t.Errorf("Column %d mismatch. Expected: %+v, Got: %+v", i, want, result[i])
					}
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled mock expectations: %v", err)
			}
		})
	}
}

func TestListOnlineDatabases(t *testing.T) {
	db, mock, closeFn := newMockDB(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{"name"}).
		AddRow("crm").
		AddRow("warehouse")
	mock.ExpectQuery(`SELECT name FROM sys\.databases WHERE state = 0 AND database_id > 4`).
		WillReturnRows(rows)

	handler := sqlServerHandler{}
	names, err := handler.ListOnlineDatabases(context.Background(), db)
	if err != nil {
		t.Fatalf("Expected no error, but got: %v", err)
	}
	if len(names) != 2 || names[0] != "crm" || names[1] != "warehouse" {
		t.Errorf("Unexpected database list: %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled mock expectations: %v", err)
	}
}

func TestCollectDatabaseUsage(t *testing.T) {
	tests := []struct {
		name          string
		dbName        string
		expectedRows  []database.UsageRow
		expectedError string
		mockSetup     func(sqlmock.Sqlmock)
	}{
		{
			name:   "Success with usage rows",
			dbName: "crm",
			expectedRows: []database.UsageRow{
				{SchemaName: "d365", TableName: "account", RowCount: 200, DataSizeMB: 12.5, UsedSpaceMB: 10.25, FreeSpaceMB: 2.25},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"schema_name", "table_name", "row_count", "data_size_mb", "used_space_mb", "free_space_mb"}).
					AddRow("d365", "account", 200, 12.5, 10.25, 2.25)
				mock.ExpectQuery(`FROM \[crm\]\.sys\.tables t`).WillReturnRows(rows)
			},
		},
		{
			name:          "Inaccessible database",
			dbName:        "restricted",
			expectedError: "error querying usage for database restricted",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM \[restricted\]\.sys\.tables t`).
					WillReturnError(errors.New("the server principal is not able to access the database"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, closeFn := newMockDB(t)
			defer closeFn()

			tt.mockSetup(mock)

			handler := sqlServerHandler{}
			result, err := handler.CollectDatabaseUsage(context.Background(), db, tt.dbName)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("Expected error containing '%s', but got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("Expected error containing '%s', got: %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error, but got: %v", err)
				}
				if len(result) != len(tt.expectedRows) {
					t.Fatalf("Expected %d rows, got %d", len(tt.expectedRows), len(result))
				}
				for i, want := range tt.expectedRows {
					if result[i] != want {
						t.Errorf("Row %d mismatch. Expected: %+v, Got: %+v", i, want, result[i])
					}
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled mock expectations: %v", err)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	handler := sqlServerHandler{}
	if got := handler.QuoteIdentifier("crm"); got != "[crm]" {
		t.Errorf("Expected [crm], got %s", got)
	}
	if got := handler.QuoteIdentifier("odd]name"); got != "[odd]]name]" {
		t.Errorf("Expected [odd]]name], got %s", got)
	}
}

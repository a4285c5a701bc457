package harvester

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/dataverse-tools/schema-harvester/internal/config"
	"github.com/dataverse-tools/schema-harvester/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber is a scripted database.SchemaProber. Probe outcomes are keyed
// by resolved location so tests exercise the resolver and the loop together.
type fakeProber struct {
	columnsByLocation map[string][]database.ColumnInfo
	errByLocation     map[string]error
	databases         []string
	usageByDatabase   map[string][]database.UsageRow
	usageErrByDB      map[string]error
	pingErr           error

	probedLocations []string
}

func (f *fakeProber) DescribeExternalLocation(ctx context.Context, location string) ([]database.ColumnInfo, error) {
	f.probedLocations = append(f.probedLocations, location)
	if err, ok := f.errByLocation[location]; ok {
		return nil, err
	}
	cols, ok := f.columnsByLocation[location]
	if !ok {
		return nil, fmt.Errorf("no such location: %s", location)
	}
	return cols, nil
}

func (f *fakeProber) ListOnlineDatabases(ctx context.Context) ([]string, error) {
	return f.databases, nil
}

func (f *fakeProber) CollectDatabaseUsage(ctx context.Context, dbName string) ([]database.UsageRow, error) {
	if err, ok := f.usageErrByDB[dbName]; ok {
		return nil, err
	}
	return f.usageByDatabase[dbName], nil
}

func (f *fakeProber) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeProber) Close() error { return nil }

func testResolver() *Resolver {
	return NewResolver(config.HarvestConfig{
		LocationPrefix:    "deltalake/",
		PartitionWildcard: "PartitionId=*/",
		FileWildcard:      "*.snappy.parquet",
	})
}

func TestHarvestSchemas_successAndIsolation(t *testing.T) {
	prober := &fakeProber{
		columnsByLocation: map[string][]database.ColumnInfo{
			"deltalake/account_partitioned/PartitionId=*/*.snappy.parquet": {
				{Ordinal: 0, Name: "id", DataType: "varchar"},
				{Ordinal: 1, Name: "name", DataType: "varchar"},
			},
		},
		errByLocation: map[string]error{
			"deltalake/contact_partitioned/PartitionId=*/*.snappy.parquet": errors.New("not found"),
		},
	}

	service := NewService(prober, testResolver(), []string{"account", "contact"}, nil)
	result, err := service.HarvestSchemas(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ColumnDescriptor{
		{TableName: "account", ColumnOrder: 0, ColumnName: "id", ColumnType: "varchar"},
		{TableName: "account", ColumnOrder: 1, ColumnName: "name", ColumnType: "varchar"},
	}, result.Columns)

	// The failed table contributes no rows, exactly one diagnostic, and the
	// loop still reaches the end of the catalog.
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "contact", result.Diagnostics[0].TableName)
	assert.Contains(t, result.Diagnostics[0].Message, "not found")
	assert.Len(t, prober.probedLocations, 2)
}

func TestHarvestSchemas_catalogOrderPreserved(t *testing.T) {
	prober := &fakeProber{
		columnsByLocation: map[string][]database.ColumnInfo{
			"deltalake/lead_partitioned/PartitionId=*/*.snappy.parquet": {
				{Ordinal: 0, Name: "leadid", DataType: "varchar"},
			},
			"deltalake/account_partitioned/PartitionId=*/*.snappy.parquet": {
				{Ordinal: 0, Name: "accountid", DataType: "varchar"},
			},
		},
	}

	service := NewService(prober, testResolver(), []string{"lead", "account"}, nil)
	result, err := service.HarvestSchemas(context.Background())
	require.NoError(t, err)

	// Accumulator order is catalog order, not alphabetical.
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "lead", result.Columns[0].TableName)
	assert.Equal(t, "account", result.Columns[1].TableName)
}

func TestHarvestSchemas_idempotentAgainstUnchangedSource(t *testing.T) {
	prober := &fakeProber{
		columnsByLocation: map[string][]database.ColumnInfo{
			"deltalake/account_partitioned/PartitionId=*/*.snappy.parquet": {
				{Ordinal: 0, Name: "id", DataType: "varchar"},
			},
		},
	}
	service := NewService(prober, testResolver(), []string{"account"}, nil)

	first, err := service.HarvestSchemas(context.Background())
	require.NoError(t, err)
	second, err := service.HarvestSchemas(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Columns, second.Columns)
	assert.Empty(t, first.Diagnostics)
	assert.Empty(t, second.Diagnostics)
}

func TestHarvestSchemas_emptyCatalog(t *testing.T) {
	service := NewService(&fakeProber{}, testResolver(), nil, nil)

	result, err := service.HarvestSchemas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Columns)
	assert.Empty(t, result.Diagnostics)
	assert.NotEmpty(t, result.RunID)
}

// Per-item isolation is scoped to resource-level failures; losing the
// shared session is fatal and aborts the remaining tables.
func TestHarvestSchemas_sessionFailureAborts(t *testing.T) {
	tests := []struct {
		name       string
		sessionErr error
	}{
		{name: "driver reports bad connection", sessionErr: driver.ErrBadConn},
		{name: "context cancelled", sessionErr: context.Canceled},
		{name: "context deadline exceeded", sessionErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &fakeProber{
				errByLocation: map[string]error{
					"deltalake/account_partitioned/PartitionId=*/*.snappy.parquet": fmt.Errorf("probe: %w", tt.sessionErr),
				},
				columnsByLocation: map[string][]database.ColumnInfo{
					"deltalake/contact_partitioned/PartitionId=*/*.snappy.parquet": {
						{Ordinal: 0, Name: "contactid", DataType: "varchar"},
					},
				},
			}

			service := NewService(prober, testResolver(), []string{"account", "contact"}, nil)
			result, err := service.HarvestSchemas(context.Background())

			require.Error(t, err)
			var connErr *ErrConnection
			assert.True(t, errors.As(err, &connErr))
			assert.Nil(t, result)
			// The loop stopped at the first table.
			assert.Len(t, prober.probedLocations, 1)
		})
	}
}

func TestVerifySession(t *testing.T) {
	service := NewService(&fakeProber{}, testResolver(), nil, nil)
	assert.NoError(t, service.VerifySession(context.Background()))

	failing := NewService(&fakeProber{pingErr: errors.New("login failed")}, testResolver(), nil, nil)
	err := failing.VerifySession(context.Background())
	require.Error(t, err)
	var connErr *ErrConnection
	assert.True(t, errors.As(err, &connErr))
}

// File: internal/harvester/harvester.go
package harvester

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/dataverse-tools/schema-harvester/internal/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs the two batch pipelines against one database session. The
// session is acquired once per run by the caller and passed in explicitly so
// tests can substitute a fake.
type Service struct {
	db       database.SchemaProber
	resolver *Resolver
	catalog  []string
	logger   *zap.Logger
}

func NewService(db database.SchemaProber, resolver *Resolver, catalog []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		resolver: resolver,
		catalog:  catalog,
		logger:   logger,
	}
}

// VerifySession checks connectivity before a run starts. Unlike probes,
// which are issued exactly once per table, the initial ping is retried.
func (s *Service) VerifySession(ctx context.Context) error {
	_, err := withRetry(ctx, DefaultRetryOptions, s.logger, func(ctx context.Context) (struct{}, error) {
		if pingErr := s.db.Ping(ctx); pingErr != nil {
			return struct{}{}, &ErrConnection{Msg: "session ping failed", Err: pingErr}
		}
		return struct{}{}, nil
	})
	return err
}

// HarvestSchemas walks the table catalog in order, resolves each table's
// wildcarded location, probes the engine for the inferred column list and
// accumulates the tagged descriptors. A failed probe is recorded as a
// diagnostic and skipped; the loop never aborts because of a single table.
// Session-level failures are the exception: losing the shared connection
// terminates the run, since no per-item reconnection is attempted.
func (s *Service) HarvestSchemas(ctx context.Context) (*SchemaHarvestResult, error) {
	startTime := time.Now()
	result := &SchemaHarvestResult{RunID: uuid.NewString()}

	s.logger.Info("starting schema harvest",
		zap.String("run_id", result.RunID),
		zap.Int("catalog_size", len(s.catalog)),
	)

	for _, tableName := range s.catalog {
		location := s.resolver.Resolve(tableName)

		columns, err := s.db.DescribeExternalLocation(ctx, location)
		if err != nil {
			if isSessionError(err) {
				return nil, &ErrConnection{
					Msg: fmt.Sprintf("session lost while probing table %s", tableName),
					Err: err,
				}
			}
			probeErr := ProbeError{TableName: tableName, Message: err.Error()}
			result.Diagnostics = append(result.Diagnostics, probeErr)
			s.logger.Warn("probe failed, skipping table",
				zap.String("run_id", result.RunID),
				zap.String("table", tableName),
				zap.String("location", location),
				zap.Error(err),
			)
			continue
		}

		for _, col := range columns {
			result.Columns = append(result.Columns, ColumnDescriptor{
				TableName:   tableName,
				ColumnOrder: col.Ordinal,
				ColumnName:  col.Name,
				ColumnType:  col.DataType,
			})
		}
	}

	s.logger.Info("schema harvest completed",
		zap.String("run_id", result.RunID),
		zap.Int("tables_probed", len(s.catalog)),
		zap.Int("tables_failed", len(result.Diagnostics)),
		zap.Int("columns_discovered", len(result.Columns)),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return result, nil
}

// isSessionError distinguishes loss of the shared session from a
// resource-level probe failure. Only the latter is isolated per table.
func isSessionError(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

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
package harvester

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// StorageUsageReport enumerates online, non-system databases and runs one
// allocation aggregation per database. Unlike the schema harvest, there is
// no per-database isolation: the first failed aggregation aborts the whole
// report. Rows are sorted by database name ascending, then row count
// descending; duplicate (schema, table, row_count) groupings are kept.
func (s *Service) StorageUsageReport(ctx context.Context) ([]DatabaseUsageRow, error) {
	startTime := time.Now()

	databases, err := s.db.ListOnlineDatabases(ctx)
	if err != nil {
		return nil, &ErrAggregation{Database: "", Err: err}
	}

	s.logger.Info("starting storage usage report",
		zap.Int("databases", len(databases)),
	)

	var report []DatabaseUsageRow
	for _, dbName := range databases {
		usage, err := s.db.CollectDatabaseUsage(ctx, dbName)
		if err != nil {
			return nil, &ErrAggregation{Database: dbName, Err: err}
		}
		for _, u := range usage {
			report = append(report, DatabaseUsageRow{
				DatabaseName: dbName,
				SchemaName:   u.SchemaName,
				TableName:    u.TableName,
				RowCount:     u.RowCount,
				DataSizeMB:   u.DataSizeMB,
				UsedSpaceMB:  u.UsedSpaceMB,
				FreeSpaceMB:  u.FreeSpaceMB,
			})
		}
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].DatabaseName != report[j].DatabaseName {
			return report[i].DatabaseName < report[j].DatabaseName
		}
		return report[i].RowCount > report[j].RowCount
	})

	s.logger.Info("storage usage report completed",
		zap.Int("databases", len(databases)),
		zap.Int("rows", len(report)),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return report, nil
}

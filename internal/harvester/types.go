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

// ColumnDescriptor is one discovered column of one catalog table.
// ColumnOrder is the zero-based ordinal the engine reported for the first
// physical file it sampled.
type ColumnDescriptor struct {
	TableName   string
	ColumnOrder int
	ColumnName  string
	ColumnType  string
}

// SchemaHarvestResult accumulates the harvest of one run. Columns are in
// catalog order, then probe-returned order within each table. Tables whose
// probe failed contribute zero columns and one diagnostic.
type SchemaHarvestResult struct {
	RunID       string
	Columns     []ColumnDescriptor
	Diagnostics []ProbeError
}

// DatabaseUsageRow is one (schema, table, row_count) grouping of one
// database's allocation statistics. Duplicate groupings are kept as-is.
type DatabaseUsageRow struct {
	DatabaseName string
	SchemaName   string
	TableName    string
	RowCount     int64
	DataSizeMB   float64
	UsedSpaceMB  float64
	FreeSpaceMB  float64
}

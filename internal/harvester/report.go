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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

var harvestHeader = []string{"table_name", "column_order", "column_name", "column_type"}

var usageHeader = []string{"database_name", "schema_name", "table_name", "row_count", "data_size_mb", "used_space_mb", "free_space_mb"}

// RenderHarvestTable writes the harvest result to w as a console table,
// preserving accumulator order.
func RenderHarvestTable(w io.Writer, result *SchemaHarvestResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(harvestHeader)
	table.SetAutoWrapText(false)
	for _, col := range result.Columns {
		table.Append([]string{
			col.TableName,
			strconv.Itoa(col.ColumnOrder),
			col.ColumnName,
			col.ColumnType,
		})
	}
	table.Render()
}

// RenderUsageTable writes the storage-usage report to w as a console table.
func RenderUsageTable(w io.Writer, report []DatabaseUsageRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(usageHeader)
	table.SetAutoWrapText(false)
	for _, row := range report {
		table.Append(usageRecord(row))
	}
	table.Render()
}

// WriteHarvestCSV exports the harvest result to a CSV file.
func WriteHarvestCSV(result *SchemaHarvestResult, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", filePath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(harvestHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, col := range result.Columns {
		record := []string{
			col.TableName,
			strconv.Itoa(col.ColumnOrder),
			col.ColumnName,
			col.ColumnType,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteUsageCSV exports the storage-usage report to a CSV file.
func WriteUsageCSV(report []DatabaseUsageRow, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", filePath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(usageHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range report {
		if err := w.Write(usageRecord(row)); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func usageRecord(row DatabaseUsageRow) []string {
	return []string{
		row.DatabaseName,
		row.SchemaName,
		row.TableName,
		strconv.FormatInt(row.RowCount, 10),
		strconv.FormatFloat(row.DataSizeMB, 'f', 2, 64),
		strconv.FormatFloat(row.UsedSpaceMB, 'f', 2, 64),
		strconv.FormatFloat(row.FreeSpaceMB, 'f', 2, 64),
	}
}

// DefaultOutputFilePath names the export file after the connected database
// and the command that produced it.
func DefaultOutputFilePath(dbName, commandName string) string {
	switch commandName {
	case "storage-usage":
		return fmt.Sprintf("%s_storage_usage.csv", dbName)
	default: // harvest-schemas
		return fmt.Sprintf("%s_schema_harvest.csv", dbName)
	}
}

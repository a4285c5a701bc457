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
package cmd

import (
	"fmt"

	"github.com/dataverse-tools/schema-harvester/internal/harvester"
	"github.com/spf13/cobra"
)

var storageUsageCmd = &cobra.Command{
	Use:     "storage-usage",
	Short:   "Report per-table storage usage across online databases",
	Long:    `Enumerates online, non-system databases and aggregates row counts and allocation-unit sizes per table. Unlike harvest-schemas, one inaccessible database aborts the whole report.`,
	Example: `./schema-harvester storage-usage --host sqlserver.example.net --username user --password pass --database master`,
	RunE:    runStorageUsage,
}

var (
	usageOutFile string
	usageExport  bool
)

func runStorageUsage(cmd *cobra.Command, args []string) error {
	db, err := setupDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	service := harvester.NewService(db, harvester.NewResolver(cfg.Harvest), nil, logger)
	if err := service.VerifySession(ctx); err != nil {
		return err
	}

	report, err := service.StorageUsageReport(ctx)
	if err != nil {
		return fmt.Errorf("storage usage report aborted: %w", err)
	}

	harvester.RenderUsageTable(cmd.OutOrStdout(), report)

	outputFile := usageOutFile
	if outputFile == "" && usageExport {
		outputFile = harvester.DefaultOutputFilePath(cfg.Database.DBName, "storage-usage")
	}
	if outputFile != "" {
		if err := harvester.WriteUsageCSV(report, outputFile); err != nil {
			return fmt.Errorf("failed to export usage report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Storage usage report written to: %s\n", outputFile)
	}
	return nil
}

func init() {
	storageUsageCmd.Flags().StringVarP(&usageOutFile, "out_file", "o", "", "File path to export the report as CSV (optional)")
	storageUsageCmd.Flags().BoolVar(&usageExport, "export", false, "Export to the default file path (<database>_storage_usage.csv)")
}

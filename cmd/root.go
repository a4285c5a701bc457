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
	"strings"

	"github.com/dataverse-tools/schema-harvester/internal/config"
	"github.com/dataverse-tools/schema-harvester/internal/database"
	_ "github.com/dataverse-tools/schema-harvester/internal/database/sqlserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool

	// Database connection flags
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool

	// Harvest convention flags
	locationPrefix string
	dataSource     string
	fileFormat     string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schema-harvester",
	Short: "A tool to harvest delta-lake table schemas and storage usage from SQL Server",
	Long: `schema-harvester is a CLI tool that connects to a SQL Server or Azure
Synapse serverless endpoint and discovers the current column layout of
partitioned delta-lake tables by asking the engine to describe a synthetic
read over each table's wildcarded path. A sibling report aggregates
per-database storage usage from the engine's allocation statistics.`,
	SilenceUsage: true,
}

// initFlagsAndConfig builds the effective configuration: defaults, then the
// optional config file, then any flags the user set explicitly.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("dialect") {
		cfg.Database.Dialect = dialect
	}
	if flags.Changed("host") {
		cfg.Database.Host = host
	}
	if flags.Changed("port") {
		cfg.Database.Port = port
	}
	if flags.Changed("username") {
		cfg.Database.User = username
	}
	if flags.Changed("password") {
		cfg.Database.Password = password
	}
	if flags.Changed("database") {
		cfg.Database.DBName = dbName
	}
	if flags.Changed("cloudsql-instance-connection-name") {
		cfg.Database.CloudSQLInstanceConnectionName = cloudSQLInstanceConnectionName
	}
	if flags.Changed("cloudsql-use-private-ip") {
		cfg.Database.UsePrivateIP = cloudSQLUsePrivateIP
	}
	if flags.Changed("location-prefix") {
		cfg.Harvest.LocationPrefix = locationPrefix
	}
	if flags.Changed("data-source") {
		cfg.Harvest.DataSource = dataSource
	}
	if flags.Changed("file-format") {
		cfg.Harvest.FileFormat = fileFormat
	}

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return validateDialect(cfg.Database.Dialect)
}

func validateDialect(dialect string) error {
	supportedDialects := []string{"sqlserver", "cloudsqlsqlserver"}
	for _, supportedDialect := range supportedDialects {
		if dialect == supportedDialect {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
}

func setupDatabase() (*database.DB, error) {
	db, err := database.New(cfg.Database, cfg.Harvest)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentPreRunE = initFlagsAndConfig

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file (JSON or YAML); flags override file values")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (development) logging")

	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "sqlserver", "Database dialect (sqlserver, cloudsqlsqlserver)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 1433, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection")

	// Harvest convention flags
	rootCmd.PersistentFlags().StringVar(&locationPrefix, "location-prefix", "deltalake/", "Base path of partitioned tables under the external data source")
	rootCmd.PersistentFlags().StringVar(&dataSource, "data-source", "ExternalConnection_DynamicsCE_ADL", "Name of the external data source registered on the engine")
	rootCmd.PersistentFlags().StringVar(&fileFormat, "file-format", "PARQUET", "Serialization format tag passed to the engine")

	// Add subcommands
	rootCmd.AddCommand(harvestSchemasCmd)
	rootCmd.AddCommand(storageUsageCmd)
}

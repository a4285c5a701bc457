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
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"username"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"database"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"cloudsql_use_private_ip"`
}

// HarvestConfig holds the fixed naming convention and external integration
// identifiers used when probing partitioned delta-lake resources.
type HarvestConfig struct {
	// LocationPrefix is the base path under the external data source,
	// e.g. "deltalake/".
	LocationPrefix string `mapstructure:"location_prefix"`
	// PartitionWildcard matches the partition directory segment,
	// e.g. "PartitionId=*/".
	PartitionWildcard string `mapstructure:"partition_wildcard"`
	// FileWildcard matches the data files inside a partition,
	// e.g. "*.snappy.parquet".
	FileWildcard string `mapstructure:"file_wildcard"`
	// DataSource is the name of the external data source registered on the
	// engine that fronts the object store.
	DataSource string `mapstructure:"data_source"`
	// FileFormat is the serialization format tag passed to the engine.
	FileFormat string `mapstructure:"file_format"`
}

// Default returns the configuration defaults. Values can be overridden by a
// config file and by command flags in cmd/root.go.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "sqlserver",
			Host:    "localhost",
			Port:    1433,
		},
		Harvest: HarvestConfig{
			LocationPrefix:    "deltalake/",
			PartitionWildcard: "PartitionId=*/",
			FileWildcard:      "*.snappy.parquet",
			DataSource:        "ExternalConnection_DynamicsCE_ADL",
			FileFormat:        "PARQUET",
		},
	}
}

// LoadFile reads a config file (JSON, YAML or TOML, decided by extension)
// on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

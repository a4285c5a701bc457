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
	"github.com/dataverse-tools/schema-harvester/internal/config"
)

// Resolver builds the external resource locator for a logical table name.
// The naming convention is fixed: every table's partitions live under
// <prefix><table>_partitioned/ with wildcarded partition and file segments.
type Resolver struct {
	locationPrefix    string
	partitionWildcard string
	fileWildcard      string
}

func NewResolver(cfg config.HarvestConfig) *Resolver {
	return &Resolver{
		locationPrefix:    cfg.LocationPrefix,
		partitionWildcard: cfg.PartitionWildcard,
		fileWildcard:      cfg.FileWildcard,
	}
}

// Resolve is pure and total: same table name, same locator.
func (r *Resolver) Resolve(tableName string) string {
	return r.locationPrefix + tableName + "_partitioned/" + r.partitionWildcard + r.fileWildcard
}

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
	"fmt"
)

// ProbeError is a per-table introspection failure. It is recoverable: the
// harvest loop records it and moves on to the next table. Failure subkinds
// (missing path, permission, malformed file) are not distinguished.
type ProbeError struct {
	TableName string
	Message   string
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for table %s: %s", e.TableName, e.Message)
}

// ErrConnection represents loss of the shared database session. It is not
// isolated: the run terminates and no partial report is returned.
type ErrConnection struct {
	Msg string
	Err error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("database connection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrConnection) Unwrap() error {
	return e.Err
}

// ErrAggregation represents a failed per-database aggregation in the
// storage-usage report. It is not isolated either.
type ErrAggregation struct {
	Database string
	Err      error
}

func (e *ErrAggregation) Error() string {
	return fmt.Sprintf("usage aggregation failed for database %s: %v", e.Database, e.Err)
}

func (e *ErrAggregation) Unwrap() error {
	return e.Err
}

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
	"sort"
	"strings"
)

// defaultCatalog is the fixed, ordered list of logical table names the
// harvest probes. Changing the set of harvested tables means editing this
// list; there is deliberately no config surface for it.
var defaultCatalog = []string{
	"account",
	"contact",
	"lead",
	"opportunity",
	"opportunityproduct",
	"quote",
	"quotedetail",
	"salesorder",
	"salesorderdetail",
	"invoice",
	"invoicedetail",
	"incident",
	"campaign",
	"campaignactivity",
	"campaignresponse",
	"systemuser",
	"team",
	"businessunit",
	"product",
	"pricelevel",
	"productpricelevel",
	"activitypointer",
	"email",
	"phonecall",
	"task",
	"appointment",
	"annotation",
	"connection",
	"customeraddress",
	"territory",
	"transactioncurrency",
}

// DefaultCatalog returns a copy of the built-in table catalog, in harvest
// order.
func DefaultCatalog() []string {
	return append([]string(nil), defaultCatalog...)
}

// SelectTables narrows a catalog to the requested table names while
// preserving catalog order. Names not present in the catalog are rejected
// up front so a typo does not silently shrink the harvest.
func SelectTables(catalog []string, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return catalog, nil
	}

	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		want[name] = true
	}

	var selected []string
	for _, name := range catalog {
		if want[name] {
			selected = append(selected, name)
			delete(want, name)
		}
	}

	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for name := range want {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown table(s) not in catalog: %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSteps_RunInSpecifiedOrder(t *testing.T) {
	names := make([]string, 0, 7)
	for _, step := range Steps() {
		names = append(names, step.Name)
	}

	assert.Equal(t, []string{
		"delete_tombstoned_inodes",
		"delete_orphaned_tree_rows",
		"zero_inuse",
		"delete_orphaned_block_rows",
		"recompute_datalength_and_size",
		"rebuild_statistics",
		"optimize_tables",
	}, names)
}

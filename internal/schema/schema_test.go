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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_NoPrefix(t *testing.T) {
	tbl := New("")

	assert.Equal(t, "inodes", tbl.Inodes)
	assert.Equal(t, "tree", tbl.Tree)
	assert.Equal(t, "data_blocks", tbl.DataBlocks)
	assert.Equal(t, "statistics", tbl.Statistics)
	assert.Equal(t, "xattrs", tbl.Xattrs)
}

func TestNew_WithPrefix(t *testing.T) {
	tbl := New("mfs_")

	assert.Equal(t, "mfs_inodes", tbl.Inodes)
	assert.Equal(t, "mfs_tree", tbl.Tree)
	assert.Equal(t, "mfs_data_blocks", tbl.DataBlocks)
	assert.Equal(t, "mfs_statistics", tbl.Statistics)
	assert.Equal(t, "mfs_xattrs", tbl.Xattrs)
}

func TestCreateStatements_ReferencesPrefixedNames(t *testing.T) {
	tbl := New("x_")
	stmts := tbl.CreateStatements()

	assert.Len(t, stmts, 5)
	for _, name := range []string{tbl.Inodes, tbl.Tree, tbl.DataBlocks, tbl.Statistics, tbl.Xattrs} {
		found := false
		for _, s := range stmts {
			if containsTable(s, name) {
				found = true
				break
			}
		}
		assert.True(t, found, "expected a CREATE TABLE statement for %s", name)
	}
}

func TestSeedRootStatement_ReferencesTreeTable(t *testing.T) {
	tbl := New("p_")
	assert.True(t, containsTable(tbl.SeedRootStatement(), tbl.Tree))
}

func TestSeedRootInodeStatement_ReferencesInodesTable(t *testing.T) {
	tbl := New("p_")
	assert.True(t, containsTable(tbl.SeedRootInodeStatement(), tbl.Inodes))
}

func containsTable(stmt, name string) bool {
	for i := 0; i+len(name) <= len(stmt); i++ {
		if stmt[i:i+len(name)] == name {
			return true
		}
	}
	return false
}

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

// Package schema names the four tables the query layer and fsck operate
// over (spec §3). Table names carry a user-configurable prefix, so the set
// of names is threaded through the call graph as an explicit value rather
// than baked in as package-level constants or a process-wide singleton --
// the prior implementation's global table-name struct is exactly the
// pattern the re-architecture calls for replacing.
package schema

import "fmt"

// Tables holds the five prefixed table names used throughout a single
// mounted filesystem's lifetime. A *Tables is constructed once from the
// configured prefix and passed explicitly to every query-layer and fsck
// function -- there is no default or global instance.
type Tables struct {
	Inodes     string
	Tree       string
	DataBlocks string
	Statistics string
	// Xattrs is a fifth table, not named in the fixed four-table layout:
	// spec §4.7 declares xattr storage layout "opaque to this spec", so a
	// (inode, name, value) mapping table carries the same prefix as the
	// other four rather than inventing an unprefixed name.
	Xattrs string
}

// New builds a Tables with every table name qualified by prefix. An empty
// prefix reproduces the unprefixed legacy names.
func New(prefix string) *Tables {
	return &Tables{
		Inodes:     prefix + "inodes",
		Tree:       prefix + "tree",
		DataBlocks: prefix + "data_blocks",
		Statistics: prefix + "statistics",
		Xattrs:     prefix + "xattrs",
	}
}

// CreateStatements returns the CREATE TABLE IF NOT EXISTS DDL for all five
// tables, in dependency order (inodes and tree before data_blocks, which
// cascades off inodes). Used by the mount command's schema bootstrap
// (cmd/mount.go's ensureSchema).
func (t *Tables) CreateStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			inode BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			mode SMALLINT UNSIGNED NOT NULL,
			uid INT UNSIGNED NOT NULL DEFAULT 0,
			gid INT UNSIGNED NOT NULL DEFAULT 0,
			atime BIGINT NOT NULL DEFAULT 0,
			mtime BIGINT NOT NULL DEFAULT 0,
			ctime BIGINT NOT NULL DEFAULT 0,
			size BIGINT UNSIGNED NOT NULL DEFAULT 0,
			inuse INT NOT NULL DEFAULT 0,
			deleted TINYINT NOT NULL DEFAULT 0,
			PRIMARY KEY (inode)
		) ENGINE=InnoDB`, t.Inodes),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			inode BIGINT UNSIGNED NOT NULL,
			parent BIGINT UNSIGNED DEFAULT NULL,
			name VARBINARY(255) NOT NULL DEFAULT '',
			KEY idx_parent_name (parent, name),
			KEY idx_inode (inode),
			CONSTRAINT fk_%[2]s_inode FOREIGN KEY (inode) REFERENCES %[1]s (inode) ON DELETE CASCADE
		) ENGINE=InnoDB`, t.Inodes, t.Tree),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			inode BIGINT UNSIGNED NOT NULL,
			seq BIGINT UNSIGNED NOT NULL,
			data LONGBLOB NOT NULL,
			datalength BIGINT UNSIGNED NOT NULL DEFAULT 0,
			PRIMARY KEY (inode, seq),
			CONSTRAINT fk_%[2]s_inode FOREIGN KEY (inode) REFERENCES %[1]s (inode) ON DELETE CASCADE
		) ENGINE=InnoDB`, t.Inodes, t.DataBlocks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			statistic VARCHAR(64) NOT NULL,
			value VARCHAR(64) NOT NULL DEFAULT '0',
			PRIMARY KEY (statistic)
		) ENGINE=InnoDB`, t.Statistics),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			inode BIGINT UNSIGNED NOT NULL,
			name VARBINARY(255) NOT NULL,
			value LONGBLOB NOT NULL,
			PRIMARY KEY (inode, name),
			CONSTRAINT fk_%[2]s_inode FOREIGN KEY (inode) REFERENCES %[1]s (inode) ON DELETE CASCADE
		) ENGINE=InnoDB`, t.Inodes, t.Xattrs),
	}
}

// SeedRootStatement returns the INSERT that creates the root tree row
// ("/", parent NULL) the very first time a fresh schema is initialized.
// Callers must guard this with an existence check (or run it inside the
// same transaction as that check) so a concurrent second mount never
// inserts a duplicate root.
func (t *Tables) SeedRootStatement() string {
	return fmt.Sprintf(`INSERT INTO %s (inode, parent, name) VALUES (1, NULL, '/')`, t.Tree)
}

// SeedRootInodeStatement returns the INSERT for inode 1, the root
// directory's inode row, matching SeedRootStatement's tree row.
func (t *Tables) SeedRootInodeStatement() string {
	return fmt.Sprintf(`INSERT INTO %s (inode, mode, uid, gid, atime, mtime, ctime, size, inuse, deleted)
		VALUES (1, ?, 0, 0, ?, ?, ?, 0, 0, 0)`, t.Inodes)
}

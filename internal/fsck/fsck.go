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

// Package fsck implements the offline consistency repair run once at pool
// initialization when configured (spec §4.8). Each step is its own
// statement, run in order; none is rolled back on a later step's failure
// -- a fault at any step terminates the run and is reported to the
// caller, who logs it and aborts startup.
package fsck

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vGimly/mysqlfs/internal/schema"
	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// Step names one of the seven repair passes, in execution order.
type Step struct {
	Name string
	exec func(ctx context.Context, db *sql.DB, t *schema.Tables) error
}

// Steps returns the ordered repair passes fsck.Run executes.
func Steps() []Step {
	return []Step{
		{"delete_tombstoned_inodes", deleteTombstonedInodes},
		{"delete_orphaned_tree_rows", deleteOrphanedTreeRows},
		{"zero_inuse", zeroInuse},
		{"delete_orphaned_block_rows", deleteOrphanedBlockRows},
		{"recompute_datalength_and_size", recomputeDatalengthAndSize},
		{"rebuild_statistics", rebuildStatistics},
		{"optimize_tables", optimizeTables},
	}
}

// Run executes every step in order against db, using the table names in
// tables. It stops and returns an IOError on the first failing step.
func Run(ctx context.Context, db *sql.DB, tables *schema.Tables) error {
	for _, step := range Steps() {
		if err := step.exec(ctx, db, tables); err != nil {
			return storeerr.Wrap(fmt.Sprintf("fsck.%s", step.Name), storeerr.IOError, err)
		}
	}
	return nil
}

// Step 1: delete inode rows already marked deleted -- these are inodes
// the Purge Rule should have already removed but didn't (e.g. from a
// crash between the UPDATE deleted=1 and the purge DELETE).
func deleteTombstonedInodes(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE deleted = 1", t.Inodes))
	return err
}

// Step 2: delete tree rows whose inode no longer exists in inodes.
func deleteOrphanedTreeRows(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode NOT IN (SELECT inode FROM %s)", t.Tree, t.Inodes))
	return err
}

// Step 3: every inuse count is process-lifetime state; a fresh mount
// starts with no open handles, regardless of what a prior unclean
// shutdown left behind.
func zeroInuse(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET inuse = 0", t.Inodes))
	return err
}

// Step 4: delete block rows whose inode no longer exists. The schema's
// foreign-key cascade makes this a no-op in the common case; it exists
// for databases where the cascade was never applied (e.g. migrated from
// an older schema version without the constraint).
func deleteOrphanedBlockRows(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode NOT IN (SELECT inode FROM %s)", t.DataBlocks, t.Inodes))
	return err
}

// Step 5: recompute datalength on every block row, then recompute each
// inode's size as the sum of its blocks' datalength.
func recomputeDatalengthAndSize(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET datalength = LENGTH(data)", t.DataBlocks)); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s i SET size = COALESCE(
			(SELECT SUM(datalength) FROM %s b WHERE b.inode = i.inode), 0)`,
		t.Inodes, t.DataBlocks))
	return err
}

// Step 6: rebuild the purely-informational statistics table.
func rebuildStatistics(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	var count, size int64
	row := db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM %s", t.Inodes))
	if err := row.Scan(&count, &size); err != nil {
		return err
	}

	for _, kv := range []struct {
		key   string
		value int64
	}{
		{"total_inodes_count", count},
		{"total_inodes_size", size},
	} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			`INSERT INTO %s (statistic, value) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE value = VALUES(value)`, t.Statistics),
			kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// Step 7: reclaim physical storage freed by the deletes above.
func optimizeTables(ctx context.Context, db *sql.DB, t *schema.Tables) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE %s, %s", t.Inodes, t.Tree))
	return err
}

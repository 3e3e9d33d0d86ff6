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

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// splitPath discards empty components (leading/trailing/repeated slashes),
// per spec §4.2.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Split divides an absolute path into its parent directory and base name,
// used by mknod/link/rename to resolve the parent before inserting a tree
// row. Split("/") returns ("/", "").
func Split(path string) (dir, base string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "/", ""
	}
	base = parts[len(parts)-1]
	if len(parts) == 1 {
		return "/", base
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/"), base
}

// Resolve walks the self-joining tree query for path's components,
// returning the inode, parent, and (if withNLinks) link count. Depth 0
// (the root) resolves directly against the `parent IS NULL` row. Fails
// with NotFound when the join produces anything other than exactly one
// row, per spec §4.2.
func (s *Store) Resolve(ctx context.Context, q querier, path string, withNLinks bool) (Entry, error) {
	components := splitPath(path)
	depth := len(components)

	var fromB, whereB strings.Builder
	fmt.Fprintf(&fromB, "%s AS t0", s.Tables.Tree)
	whereB.WriteString("t0.parent IS NULL")

	args := make([]any, 0, depth)
	for i, name := range components {
		fmt.Fprintf(&fromB, " JOIN %s AS t%d ON t%d.inode = t%d.parent", s.Tables.Tree, i+1, i, i+1)
		whereB.WriteString(fmt.Sprintf(" AND t%d.name = ?", i+1))
		args = append(args, name)
	}

	last := depth
	selectCols := fmt.Sprintf("t%d.inode, t%d.name, t%d.parent", last, last, last)
	if withNLinks {
		selectCols += fmt.Sprintf(", (SELECT COUNT(*) FROM %s AS tl WHERE tl.inode = t%d.inode) AS nlinks",
			s.Tables.Tree, last)
	} else {
		selectCols += ", 1 AS nlinks"
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectCols, fromB.String(), whereB.String())

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return Entry{}, storeerr.Wrap("store.Resolve", storeerr.IOError, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var name sql.NullString
		if err := rows.Scan(&e.Inode, &name, &e.Parent, &e.NLinks); err != nil {
			return Entry{}, storeerr.Wrap("store.Resolve", storeerr.IOError, err)
		}
		e.Name = name.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, storeerr.Wrap("store.Resolve", storeerr.IOError, err)
	}

	if len(entries) != 1 {
		return Entry{}, storeerr.New("store.Resolve", storeerr.NotFound)
	}
	return entries[0], nil
}

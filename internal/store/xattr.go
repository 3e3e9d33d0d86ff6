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

	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// XattrFlag mirrors the standard setxattr CREATE/REPLACE flag semantics
// (spec §4.7).
type XattrFlag int

const (
	// XattrDefault overwrites an existing value or creates a new one.
	XattrDefault XattrFlag = iota
	// XattrCreate fails if the attribute already exists.
	XattrCreate
	// XattrReplace fails if the attribute does not already exist.
	XattrReplace
)

// GetXattr returns the stored value of name on the inode path resolves to.
func (s *Store) GetXattr(ctx context.Context, db *sql.DB, path, name string) ([]byte, error) {
	entry, err := s.Resolve(ctx, db, path, false)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT value FROM %s WHERE inode = ? AND name = ?", s.Tables.Xattrs),
		entry.Inode, name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, storeerr.New("store.GetXattr", storeerr.NotFound)
	}
	if err != nil {
		return nil, storeerr.Wrap("store.GetXattr", storeerr.IOError, err)
	}
	return value, nil
}

// ListXattr returns the names of every attribute set on path's inode.
func (s *Store) ListXattr(ctx context.Context, db *sql.DB, path string) ([]string, error) {
	entry, err := s.Resolve(ctx, db, path, false)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT name FROM %s WHERE inode = ?", s.Tables.Xattrs), entry.Inode)
	if err != nil {
		return nil, storeerr.Wrap("store.ListXattr", storeerr.IOError, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeerr.Wrap("store.ListXattr", storeerr.IOError, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("store.ListXattr", storeerr.IOError, err)
	}
	return names, nil
}

// SetXattr creates or replaces name's value, honoring CREATE/REPLACE flag
// semantics.
func (s *Store) SetXattr(ctx context.Context, db *sql.DB, path, name string, value []byte, flag XattrFlag) error {
	entry, err := s.Resolve(ctx, db, path, false)
	if err != nil {
		return err
	}

	var exists bool
	err = db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT 1 FROM %s WHERE inode = ? AND name = ?", s.Tables.Xattrs),
		entry.Inode, name).Scan(new(int))
	switch err {
	case nil:
		exists = true
	case sql.ErrNoRows:
		exists = false
	default:
		return storeerr.Wrap("store.SetXattr", storeerr.IOError, err)
	}

	if flag == XattrCreate && exists {
		return storeerr.New("store.SetXattr", storeerr.Inval)
	}
	if flag == XattrReplace && !exists {
		return storeerr.New("store.SetXattr", storeerr.NotFound)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (inode, name, value) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE value = VALUES(value)`, s.Tables.Xattrs),
		entry.Inode, name, value); err != nil {
		return storeerr.Wrap("store.SetXattr", storeerr.IOError, err)
	}
	return nil
}

// RemoveXattr deletes name from path's inode.
func (s *Store) RemoveXattr(ctx context.Context, db *sql.DB, path, name string) error {
	entry, err := s.Resolve(ctx, db, path, false)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode = ? AND name = ?", s.Tables.Xattrs), entry.Inode, name)
	if err != nil {
		return storeerr.Wrap("store.RemoveXattr", storeerr.IOError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.Wrap("store.RemoveXattr", storeerr.IOError, err)
	}
	if n == 0 {
		return storeerr.New("store.RemoveXattr", storeerr.NotFound)
	}
	return nil
}

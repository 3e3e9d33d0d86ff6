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

// TypeMask is the POSIX S_IFMT bitmask isolating a mode's file-type bits,
// used by Chmod to preserve them across a mode change (spec §4.3).
const TypeMask = 0170000

// GetAttr resolves path and returns its Inode row plus link count.
func (s *Store) GetAttr(ctx context.Context, db *sql.DB, path string) (Inode, int, error) {
	entry, err := s.Resolve(ctx, db, path, true)
	if err != nil {
		return Inode{}, 0, err
	}
	ino, err := s.loadInode(ctx, db, entry.Inode)
	if err != nil {
		return Inode{}, 0, err
	}
	return ino, entry.NLinks, nil
}

func (s *Store) loadInode(ctx context.Context, q querier, inode uint64) (Inode, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT inode, mode, uid, gid, atime, mtime, ctime, size, inuse, deleted FROM %s WHERE inode = ?",
		s.Tables.Inodes), inode)

	var ino Inode
	var deleted int
	if err := row.Scan(&ino.Inode, &ino.Mode, &ino.UID, &ino.GID, &ino.Atime, &ino.Mtime, &ino.Ctime,
		&ino.Size, &ino.Inuse, &deleted); err != nil {
		if err == sql.ErrNoRows {
			return Inode{}, storeerr.New("store.loadInode", storeerr.NotFound)
		}
		return Inode{}, storeerr.Wrap("store.loadInode", storeerr.IOError, err)
	}
	ino.Deleted = deleted != 0
	return ino, nil
}

// ReadDir resolves path to a directory inode and lists its entries, not
// including "." / ".." -- the FS Adapter synthesizes those per spec §4.3's
// readdir contract.
func (s *Store) ReadDir(ctx context.Context, db *sql.DB, path string) ([]DirEntry, error) {
	entry, err := s.Resolve(ctx, db, path, false)
	if err != nil {
		return nil, err
	}
	return s.readDirByInode(ctx, db, entry.Inode)
}

func (s *Store) readDirByInode(ctx context.Context, q querier, inode uint64) ([]DirEntry, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(
		"SELECT name, inode FROM %s WHERE parent = ?", s.Tables.Tree), inode)
	if err != nil {
		return nil, storeerr.Wrap("store.ReadDir", storeerr.IOError, err)
	}
	defer rows.Close()

	var out []DirEntry
	for rows.Next() {
		var e DirEntry
		if err := rows.Scan(&e.Name, &e.Inode); err != nil {
			return nil, storeerr.Wrap("store.ReadDir", storeerr.IOError, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("store.ReadDir", storeerr.IOError, err)
	}
	return out, nil
}

// MkNod creates a new inode and a tree row naming it under parent's
// directory (spec §4.3). The root is seeded separately by
// schema.Tables.SeedRootStatement / SeedRootInodeStatement, not through
// this path.
func (s *Store) MkNod(ctx context.Context, db *sql.DB, path string, mode, uid, gid uint32) (uint64, error) {
	dir, base := Split(path)
	if len(base) > 255 {
		return 0, storeerr.New("store.MkNod", storeerr.NameTooLong)
	}

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return 0, storeerr.Wrap("store.MkNod", storeerr.IOError, err)
	}
	defer tx.Rollback()

	parent, err := s.Resolve(ctx, tx, dir, false)
	if err != nil {
		return 0, err
	}

	now := s.now()
	res, err := tx.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (mode, uid, gid, atime, mtime, ctime, size, inuse, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0)`, s.Tables.Inodes), mode, uid, gid, now, now, now)
	if err != nil {
		return 0, storeerr.Wrap("store.MkNod", storeerr.IOError, err)
	}
	inode, err := res.LastInsertId()
	if err != nil {
		return 0, storeerr.Wrap("store.MkNod", storeerr.IOError, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (inode, parent, name) VALUES (?, ?, ?)", s.Tables.Tree),
		inode, parent.Inode, base); err != nil {
		return 0, storeerr.Wrap("store.MkNod", storeerr.IOError, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storeerr.Wrap("store.MkNod", storeerr.IOError, err)
	}
	return uint64(inode), nil
}

// Unlink implements both unlink and rmdir (spec §6: "rmdir is implemented
// identically to unlink; the non-empty check is inside").
func (s *Store) Unlink(ctx context.Context, db *sql.DB, path string) error {
	entry, err := s.Resolve(ctx, db, path, true)
	if err != nil {
		return err
	}

	children, err := s.readDirByInode(ctx, db, entry.Inode)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return storeerr.New("store.Unlink", storeerr.NotEmpty)
	}

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return storeerr.Wrap("store.Unlink", storeerr.IOError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode = ? AND parent = ?", s.Tables.Tree),
		entry.Inode, entry.Parent); err != nil {
		return storeerr.Wrap("store.Unlink", storeerr.IOError, err)
	}

	if entry.NLinks <= 1 {
		var remaining int
		if err := tx.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE inode = ?", s.Tables.Tree), entry.Inode).Scan(&remaining); err != nil {
			return storeerr.Wrap("store.Unlink", storeerr.IOError, err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				"UPDATE %s SET deleted = 1 WHERE inode = ?", s.Tables.Inodes), entry.Inode); err != nil {
				return storeerr.Wrap("store.Unlink", storeerr.IOError, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storeerr.Wrap("store.Unlink", storeerr.IOError, err)
	}

	return s.purge(ctx, db, entry.Inode)
}

// purge implements the Purge Rule (spec §4.3): an inode is physically
// deleted when inuse = 0 AND deleted = 1.
func (s *Store) purge(ctx context.Context, db *sql.DB, inode uint64) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode = ? AND inuse = 0 AND deleted = 1", s.Tables.Inodes), inode)
	if err != nil {
		return storeerr.Wrap("store.purge", storeerr.IOError, err)
	}
	_, _ = res.RowsAffected()
	return nil
}

// Chmod updates mode while preserving the stored file-type bits.
func (s *Store) Chmod(ctx context.Context, db *sql.DB, inode uint64, mode uint32) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET mode = (mode & ?) | (? & ~?) WHERE inode = ?", s.Tables.Inodes),
		TypeMask, mode, TypeMask, inode); err != nil {
		return storeerr.Wrap("store.Chmod", storeerr.IOError, err)
	}
	return nil
}

// Chown updates uid and/or gid. A nil pointer means "do not change that
// field" -- the explicit optional-field shape spec §9 asks for in place of
// the original's -1-as-unsigned-sentinel convention. If both are nil, this
// short-circuits to success rather than emitting a no-op (or, as in the
// original, syntactically invalid) UPDATE.
func (s *Store) Chown(ctx context.Context, db *sql.DB, inode uint64, uid, gid *uint32) error {
	if uid == nil && gid == nil {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET ", s.Tables.Inodes)
	args := make([]any, 0, 3)
	var sets []string
	if uid != nil {
		sets = append(sets, "uid = ?")
		args = append(args, *uid)
	}
	if gid != nil {
		sets = append(sets, "gid = ?")
		args = append(args, *gid)
	}
	for i, clause := range sets {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE inode = ?"
	args = append(args, inode)

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return storeerr.Wrap("store.Chown", storeerr.IOError, err)
	}
	return nil
}

// Utime updates atime and mtime.
func (s *Store) Utime(ctx context.Context, db *sql.DB, inode uint64, atime, mtime int64) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET atime = ?, mtime = ? WHERE inode = ?", s.Tables.Inodes),
		atime, mtime, inode); err != nil {
		return storeerr.Wrap("store.Utime", storeerr.IOError, err)
	}
	return nil
}

// Link resolves from to an inode and inserts a new tree row naming it
// under to's parent directory, implementing hard links (spec §4.3).
func (s *Store) Link(ctx context.Context, db *sql.DB, from, to string) error {
	toDir, toBase := Split(to)
	if len(toBase) > 255 {
		return storeerr.New("store.Link", storeerr.NameTooLong)
	}

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return storeerr.Wrap("store.Link", storeerr.IOError, err)
	}
	defer tx.Rollback()

	source, err := s.Resolve(ctx, tx, from, false)
	if err != nil {
		return err
	}
	parent, err := s.Resolve(ctx, tx, toDir, false)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (inode, parent, name) VALUES (?, ?, ?)", s.Tables.Tree),
		source.Inode, parent.Inode, toBase); err != nil {
		return storeerr.Wrap("store.Link", storeerr.IOError, err)
	}

	if err := tx.Commit(); err != nil {
		return storeerr.Wrap("store.Link", storeerr.IOError, err)
	}
	return nil
}

// Rename moves the tree row for from to to's (name, parent). Per spec §9
// open question 2, the original issues the pre-unlink of an existing
// target outside any transaction; this implementation wraps both the
// target unlink and the rename itself in one transaction so a subsequent
// failure cannot lose the target.
func (s *Store) Rename(ctx context.Context, db *sql.DB, from, to string) error {
	toDir, toBase := Split(to)
	if len(toBase) > 255 {
		return storeerr.New("store.Rename", storeerr.NameTooLong)
	}

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return storeerr.Wrap("store.Rename", storeerr.IOError, err)
	}
	defer tx.Rollback()

	var purgeTarget uint64
	var needsPurge bool

	if target, err := s.Resolve(ctx, tx, to, true); err == nil {
		children, err := s.readDirByInode(ctx, tx, target.Inode)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(
				"DELETE FROM %s WHERE inode = ? AND parent = ?", s.Tables.Tree),
				target.Inode, target.Parent); err != nil {
				return storeerr.Wrap("store.Rename", storeerr.IOError, err)
			}
			if target.NLinks <= 1 {
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(
					"UPDATE %s SET deleted = 1 WHERE inode = ?", s.Tables.Inodes),
					target.Inode); err != nil {
					return storeerr.Wrap("store.Rename", storeerr.IOError, err)
				}
				purgeTarget = target.Inode
				needsPurge = true
			}
		}
	}

	source, err := s.Resolve(ctx, tx, from, false)
	if err != nil {
		return err
	}
	newParent, err := s.Resolve(ctx, tx, toDir, false)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET name = ?, parent = ? WHERE inode = ? AND parent = ?", s.Tables.Tree),
		toBase, newParent.Inode, source.Inode, source.Parent); err != nil {
		return storeerr.Wrap("store.Rename", storeerr.IOError, err)
	}

	if err := tx.Commit(); err != nil {
		return storeerr.Wrap("store.Rename", storeerr.IOError, err)
	}

	if needsPurge {
		return s.purge(ctx, db, purgeTarget)
	}
	return nil
}

// Open increments inuse on inode, caching the open-file reference count
// the FS Adapter needs at release time (spec §6's "open resolves the
// path, caches the inode ... and increments inuse").
func (s *Store) Open(ctx context.Context, db *sql.DB, inode uint64) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET inuse = inuse + 1 WHERE inode = ?", s.Tables.Inodes), inode); err != nil {
		return storeerr.Wrap("store.Open", storeerr.IOError, err)
	}
	return nil
}

// Release decrements inuse and attempts a purge.
func (s *Store) Release(ctx context.Context, db *sql.DB, inode uint64) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET inuse = inuse - 1 WHERE inode = ? AND inuse > 0", s.Tables.Inodes), inode); err != nil {
		return storeerr.Wrap("store.Release", storeerr.IOError, err)
	}
	return s.purge(ctx, db, inode)
}

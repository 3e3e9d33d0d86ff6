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

	"github.com/vGimly/mysqlfs/internal/block"
	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// Read implements spec §4.4: compute block arithmetic, fetch the rows that
// exist in [seq_first, seq_last], and treat missing rows as zero-filled
// holes.
func (s *Store) Read(ctx context.Context, db *sql.DB, inode uint64, size, offset int64) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}
	r := block.Compute(size, offset)

	seqLast := r.SeqLast
	if r.BoundaryAligned() {
		seqLast--
	}
	if seqLast < r.SeqFirst {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT seq, data, datalength FROM %s WHERE inode = ? AND seq BETWEEN ? AND ? ORDER BY seq",
		s.Tables.DataBlocks), inode, r.SeqFirst, seqLast)
	if err != nil {
		return nil, storeerr.Wrap("store.Read", storeerr.IOError, err)
	}
	defer rows.Close()

	present := make(map[int64]struct {
		data       []byte
		datalength int64
	})
	for rows.Next() {
		var seq, datalength int64
		var data []byte
		if err := rows.Scan(&seq, &data, &datalength); err != nil {
			return nil, storeerr.Wrap("store.Read", storeerr.IOError, err)
		}
		present[seq] = struct {
			data       []byte
			datalength int64
		}{data, datalength}
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.Wrap("store.Read", storeerr.IOError, err)
	}

	out := make([]byte, 0, size)
	for seq := r.SeqFirst; seq <= seqLast; seq++ {
		blk, ok := present[seq]
		data, datalength := blk.data, blk.datalength
		if !ok {
			data, datalength = nil, block.Size
		}

		switch {
		case seq == r.SeqFirst:
			if datalength < r.OffsetFirst {
				return out, nil
			}
			n := min64(datalength-r.OffsetFirst, r.LengthFirst)
			out = append(out, sliceOrZero(data, r.OffsetFirst, n)...)
		case seq == r.SeqLast && !r.BoundaryAligned():
			n := min64(r.LengthLast, datalength)
			out = append(out, sliceOrZero(data, 0, n)...)
		default:
			n := min64(block.Size, datalength)
			out = append(out, sliceOrZero(data, 0, n)...)
		}
	}
	return out, nil
}

func sliceOrZero(data []byte, off, n int64) []byte {
	if n <= 0 {
		return nil
	}
	if off < 0 {
		off = 0
	}
	if int64(len(data)) >= off+n {
		return data[off : off+n]
	}
	return make([]byte, n)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Write implements spec §4.5: the request is split into head/middle/tail
// blocks and written inside one transaction; inodes.size is recomputed as
// SUM(datalength) afterward.
func (s *Store) Write(ctx context.Context, db *sql.DB, inode uint64, data []byte, offset int64) (int64, error) {
	size := int64(len(data))
	if size == 0 {
		return 0, nil
	}
	r := block.Compute(size, offset)

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return 0, storeerr.Wrap("store.Write", storeerr.IOError, err)
	}
	defer tx.Rollback()

	if err := s.writeOneBlock(ctx, tx, inode, r.SeqFirst, data[:r.LengthFirst], r.OffsetFirst); err != nil {
		return 0, err
	}

	pos := r.LengthFirst
	for seq := r.SeqFirst + 1; seq < r.SeqLast; seq++ {
		if err := s.writeOneBlock(ctx, tx, inode, seq, data[pos:pos+block.Size], 0); err != nil {
			return 0, err
		}
		pos += block.Size
	}

	if r.SeqFirst != r.SeqLast && !r.BoundaryAligned() {
		if err := s.writeOneBlock(ctx, tx, inode, r.SeqLast, data[pos:], 0); err != nil {
			return 0, err
		}
	}

	if err := s.recomputeSize(ctx, tx, inode); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storeerr.Wrap("store.Write", storeerr.IOError, err)
	}
	return size, nil
}

// writeOneBlock implements the per-block contract of spec §4.5. buf's
// length is the write length ("len" in the spec prose); off is the offset
// within the block.
func (s *Store) writeOneBlock(ctx context.Context, tx *sql.Tx, inode uint64, seq int64, buf []byte, off int64) error {
	length := int64(len(buf))
	if length == 0 {
		return nil
	}
	if off+length > block.Size {
		return storeerr.New("store.writeOneBlock", storeerr.Inval)
	}

	var currentSize int64
	var exists bool
	row := tx.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT datalength FROM %s WHERE inode = ? AND seq = ?", s.Tables.DataBlocks), inode, seq)
	switch err := row.Scan(&currentSize); err {
	case nil:
		exists = true
	case sql.ErrNoRows:
		exists = false
	default:
		return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
	}

	if !exists {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (inode, seq, data, datalength) VALUES (?, ?, '', 0)", s.Tables.DataBlocks),
			inode, seq); err != nil {
			return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
		}
		currentSize = 0
	}

	switch {
	case off == 0 && currentSize == 0:
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"UPDATE %s SET data = ? WHERE inode = ? AND seq = ?", s.Tables.DataBlocks),
			buf, inode, seq); err != nil {
			return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
		}
	case off == currentSize:
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"UPDATE %s SET data = CONCAT(data, ?) WHERE inode = ? AND seq = ?", s.Tables.DataBlocks),
			buf, inode, seq); err != nil {
			return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
		}
	default:
		expr := "CONCAT("
		args := make([]any, 0, 3)
		parts := make([]string, 0, 3)
		if off > 0 {
			parts = append(parts, "RPAD(data, ?, CHAR(0))")
			args = append(args, off)
		}
		parts = append(parts, "?")
		args = append(args, buf)
		if off+length < currentSize {
			parts = append(parts, fmt.Sprintf("SUBSTRING(data FROM %d)", off+length+1))
		}
		for i, p := range parts {
			if i > 0 {
				expr += ", "
			}
			expr += p
		}
		expr += ")"

		stmt := fmt.Sprintf("UPDATE %s SET data = %s WHERE inode = ? AND seq = ?", s.Tables.DataBlocks, expr)
		args = append(args, inode, seq)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET datalength = LENGTH(data) WHERE inode = ? AND seq = ?", s.Tables.DataBlocks),
		inode, seq); err != nil {
		return storeerr.Wrap("store.writeOneBlock", storeerr.IOError, err)
	}
	return nil
}

func (s *Store) recomputeSize(ctx context.Context, tx *sql.Tx, inode uint64) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET size = (SELECT COALESCE(SUM(datalength), 0) FROM %s WHERE inode = ?) WHERE inode = ?`,
		s.Tables.Inodes, s.Tables.DataBlocks), inode, inode); err != nil {
		return storeerr.Wrap("store.recomputeSize", storeerr.IOError, err)
	}
	return nil
}

// Truncate implements spec §4.6: delete blocks past the new boundary, pad
// or trim the boundary block, and set inodes.size, all in one transaction.
func (s *Store) Truncate(ctx context.Context, db *sql.DB, inode uint64, newLength int64) error {
	seqLast := newLength / block.Size
	lengthLast := newLength % block.Size

	tx, err := BeginTx(ctx, db)
	if err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE inode = ? AND seq > ?", s.Tables.DataBlocks), inode, seqLast); err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET data = RPAD(data, ?, CHAR(0)) WHERE inode = ? AND seq = ?", s.Tables.DataBlocks),
		lengthLast, inode, seqLast); err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET datalength = LENGTH(data) WHERE inode = ? AND seq = ?", s.Tables.DataBlocks),
		inode, seqLast); err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET size = ? WHERE inode = ?", s.Tables.Inodes), newLength, inode); err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}

	if err := tx.Commit(); err != nil {
		return storeerr.Wrap("store.Truncate", storeerr.IOError, err)
	}
	return nil
}

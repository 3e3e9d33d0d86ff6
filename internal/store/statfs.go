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

// freeInodesHeadroom and freeBlocksHeadroom are the fixed constants the
// original design adds to the free-inode and free-block counts statfs reports. Its reasoning is
// undocumented upstream; preserved verbatim per spec §9.
const (
	freeInodesHeadroom = 1024
	freeBlocksHeadroom = 10240
)

// StatFS is the result of the filesystem-wide usage query.
type StatFS struct {
	Bsize   uint64
	Frsize  uint64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	NameMax uint64
}

// StatFS implements spec §4.3's statfs contract.
func (s *Store) StatFS(ctx context.Context, db *sql.DB) (StatFS, error) {
	var totalInodes uint64
	if err := db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s", s.Tables.Inodes)).Scan(&totalInodes); err != nil {
		return StatFS{}, storeerr.Wrap("store.StatFS", storeerr.IOError, err)
	}

	var totalSize sql.NullInt64
	if err := db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT SUM(size) FROM %s", s.Tables.Inodes)).Scan(&totalSize); err != nil {
		return StatFS{}, storeerr.Wrap("store.StatFS", storeerr.IOError, err)
	}
	totalBlocks := uint64(block.BlockCount(totalSize.Int64))

	return StatFS{
		Bsize:   block.Size,
		Frsize:  block.Size,
		Blocks:  totalBlocks + freeBlocksHeadroom,
		Bfree:   freeBlocksHeadroom,
		Bavail:  freeBlocksHeadroom,
		Files:   totalInodes + freeInodesHeadroom,
		Ffree:   freeInodesHeadroom,
		Favail:  freeInodesHeadroom,
		NameMax: 255,
	}, nil
}

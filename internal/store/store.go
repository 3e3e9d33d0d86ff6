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

// Package store is the Query Layer: stateless functions that translate one
// logical filesystem operation into one or more parameterized SQL
// statements against the four (plus xattrs) prefixed tables named by
// internal/schema. Every exported method takes the *sql.DB (or *sql.Tx)
// session explicitly; nothing here retains state across calls, matching
// spec §3's "no in-process cache may survive a callback return".
package store

import (
	"context"
	"database/sql"

	"github.com/vGimly/mysqlfs/clock"
	"github.com/vGimly/mysqlfs/internal/schema"
)

// Inode mirrors one row of the inodes table.
type Inode struct {
	Inode   uint64
	Mode    uint32
	UID     uint32
	GID     uint32
	Atime   int64
	Mtime   int64
	Ctime   int64
	Size    uint64
	Inuse   int
	Deleted bool
}

// Entry is the result of resolving a path: the inode it names plus the
// directory-entry metadata needed by getattr's st_nlink.
type Entry struct {
	Inode   uint64
	Name    string
	Parent  sql.NullInt64
	NLinks  int
}

// DirEntry is one row of a readdir listing.
type DirEntry struct {
	Name  string
	Inode uint64
}

// Store is the Query Layer, bound to one set of prefixed table names and a
// Clock used to stamp atime/mtime/ctime.
type Store struct {
	Tables *schema.Tables
	Clock  clock.Clock
}

// New builds a Store over tables, stamping times with clk.
func New(tables *schema.Tables, clk clock.Clock) *Store {
	return &Store{Tables: tables, Clock: clk}
}

func (s *Store) now() int64 {
	return s.Clock.Now().Unix()
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting every Query
// Layer function run either standalone or inside a caller-managed
// transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BeginTx starts a transaction on db, used by write/truncate/rename per
// spec §5's "BEGIN … COMMIT around the statement group" ordering rule.
func BeginTx(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

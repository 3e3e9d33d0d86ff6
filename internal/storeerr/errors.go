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

// Package storeerr holds the error taxonomy shared by the connection pool,
// the query layer, and the FS Adapter (spec §7). Every fallible operation in
// this repository returns either nil or an *Error from this package; the FS
// Adapter is the only place that ever converts one into a syscall.Errno.
package storeerr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is the taxonomy of failures a query-layer or pool operation can
// produce. It deliberately mirrors spec §7 one-for-one rather than the
// finer-grained MySQL error codes underneath it.
type Kind int

const (
	// NotFound: path resolution miss (zero rows), stale inode.
	NotFound Kind = iota
	// NotEmpty: rmdir on a directory with children.
	NotEmpty
	// NameTooLong: a path component (or the whole path) exceeds the limit.
	NameTooLong
	// TooManyOpen: the connection pool is at its ceiling.
	TooManyOpen
	// IOError: any DB fault -- bad SQL, lost connection, prepare/bind/execute
	// failure, or an unexpected result shape.
	IOError
	// Inval: a block-arithmetic contract was violated (internal bug, not a
	// caller-triggerable condition under correct use).
	Inval
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case NotEmpty:
		return "NOT_EMPTY"
	case NameTooLong:
		return "NAME_TOO_LONG"
	case TooManyOpen:
		return "TOO_MANY_OPEN"
	case IOError:
		return "IO_ERROR"
	case Inval:
		return "INVAL"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type returned throughout the store and pool
// packages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error around an underlying cause (typically a *sql.DB /
// *sql.Rows / *sql.Tx failure), classified as kind.
func Wrap(op string, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, defaulting to IOError for anything else -- any failure this
// package didn't deliberately classify is, by construction, a DB fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return IOError
}

// Errno maps err onto the syscall.Errno the FS Adapter hands back to the
// FUSE host, per spec §7's taxonomy-to-errno table.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case NotFound:
		return syscall.ENOENT
	case NotEmpty:
		return syscall.ENOTEMPTY
	case NameTooLong:
		return syscall.ENAMETOOLONG
	case TooManyOpen:
		return syscall.EMFILE
	case Inval:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

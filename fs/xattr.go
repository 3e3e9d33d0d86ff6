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

package fs

import (
	"database/sql"
	"strings"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/vGimly/mysqlfs/internal/store"
	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// syscallERANGE is returned when the caller's destination buffer is too
// small to hold the attribute value or name list, per getxattr(2)/
// listxattr(2)'s "query required size first" convention.
const syscallERANGE = syscall.ERANGE

func xattrFlag(raw uint32) store.XattrFlag {
	const (
		xattrCreateFlag  = 0x1
		xattrReplaceFlag = 0x2
	)
	switch {
	case raw&xattrCreateFlag != 0:
		return store.XattrCreate
	case raw&xattrReplaceFlag != 0:
		return store.XattrReplace
	default:
		return store.XattrDefault
	}
}

func (fs *fileSystem) GetXattr(op *fuseops.GetXattrOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	var value []byte
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		value, e = fs.store.GetXattr(op.Context(), db, p, op.Name)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	if len(op.Dst) < len(value) {
		op.BytesRead = len(value)
		return syscallERANGE
	}
	op.BytesRead = copy(op.Dst, value)
	return nil
}

func (fs *fileSystem) ListXattr(op *fuseops.ListXattrOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	var names []string
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		names, e = fs.store.ListXattr(op.Context(), db, p)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	joined := strings.Join(names, "\x00")
	if len(names) > 0 {
		joined += "\x00"
	}

	if len(op.Dst) < len(joined) {
		op.BytesRead = len(joined)
		return syscallERANGE
	}
	op.BytesRead = copy(op.Dst, joined)
	return nil
}

func (fs *fileSystem) SetXattr(op *fuseops.SetXattrOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.SetXattr(op.Context(), db, p, op.Name, op.Value, xattrFlag(op.Flags))
	})
	if err != nil {
		return storeerr.Errno(err)
	}
	return nil
}

func (fs *fileSystem) RemoveXattr(op *fuseops.RemoveXattrOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.RemoveXattr(op.Context(), db, p, op.Name)
	})
	if err != nil {
		return storeerr.Errno(err)
	}
	return nil
}

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

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// dirHandle caches one OpenDir's listing, synthesizing "." and ".." --
// internal/store's ReadDir excludes them, matching the teacher's own
// directory handle snapshotting the listing once at open time rather than
// re-querying on every ReadDir call.
type dirHandle struct {
	entries []fuseops.Dirent
}

// fileHandle only needs to remember which inode it was opened against --
// ReleaseFileHandleOp carries no inode of its own.
type fileHandle struct {
	inode uint64
}

func (fs *fileSystem) allocHandle() fuseops.HandleID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h := fs.nextHandle
	fs.nextHandle++
	return h
}

func (fs *fileSystem) OpenDir(op *fuseops.OpenDirOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	var rows []struct {
		name  string
		inode uint64
	}
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		entries, e := fs.store.ReadDir(op.Context(), db, p)
		if e != nil {
			return e
		}
		rows = make([]struct {
			name  string
			inode uint64
		}, len(entries))
		for i, e := range entries {
			rows[i].name = e.Name
			rows[i].inode = e.Inode
		}
		return nil
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	dirents := make([]fuseops.Dirent, 0, len(rows)+2)
	dirents = append(dirents,
		fuseops.Dirent{Offset: 1, Inode: op.Inode, Name: ".", Type: fuseutil.DT_Directory},
		fuseops.Dirent{Offset: 2, Inode: fuseops.RootInodeID, Name: "..", Type: fuseutil.DT_Directory},
	)
	for i, r := range rows {
		dirents = append(dirents, fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 3),
			Inode:  fuseops.InodeID(r.inode),
			Name:   r.name,
			Type:   fuseutil.DT_Unknown,
		})
	}

	h := fs.allocHandle()
	fs.mu.Lock()
	fs.dirHandles[h] = &dirHandle{entries: dirents}
	fs.mu.Unlock()

	op.Handle = h
	return nil
}

func (fs *fileSystem) ReadDir(op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	h, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return fuse.EIO
	}

	buf := make([]byte, op.Size)
	n := 0
	for idx := int(op.Offset); idx < len(h.entries); idx++ {
		written := fuseutil.WriteDirent(buf[n:], h.entries[idx])
		if written == 0 {
			break
		}
		n += written
	}
	op.Data = buf[:n]
	return nil
}

func (fs *fileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	delete(fs.dirHandles, op.Handle)
	fs.mu.Unlock()
	return nil
}

func (fs *fileSystem) OpenFile(op *fuseops.OpenFileOp) error {
	_, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	inode := uint64(op.Inode)
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.Open(op.Context(), db, inode)
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	h := fs.allocHandle()
	fs.mu.Lock()
	fs.fileHandles[h] = &fileHandle{inode: inode}
	fs.mu.Unlock()

	op.Handle = h
	return nil
}

func (fs *fileSystem) ReadFile(op *fuseops.ReadFileOp) error {
	var data []byte
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		data, e = fs.store.Read(op.Context(), db, uint64(op.Inode), int64(op.Size), op.Offset)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}
	op.Data = data
	return nil
}

func (fs *fileSystem) WriteFile(op *fuseops.WriteFileOp) error {
	if err := fs.withDB(op.Context(), func(db *sql.DB) error {
		_, e := fs.store.Write(op.Context(), db, uint64(op.Inode), op.Data, op.Offset)
		return e
	}); err != nil {
		return storeerr.Errno(err)
	}
	return nil
}

func (fs *fileSystem) SyncFile(op *fuseops.SyncFileOp) error {
	return nil
}

func (fs *fileSystem) FlushFile(op *fuseops.FlushFileOp) error {
	return nil
}

func (fs *fileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	h, ok := fs.fileHandles[op.Handle]
	delete(fs.fileHandles, op.Handle)
	fs.mu.Unlock()
	if !ok {
		return nil
	}

	if err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.Release(op.Context(), db, h.inode)
	}); err != nil {
		return storeerr.Errno(err)
	}
	return nil
}

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

// Package fs is the FS Adapter: a fuseutil.FileSystem implementation that
// translates every inode-addressed FUSE op into one or more path- or
// inode-addressed Query Layer calls, borrowing a session from the pool for
// the duration of each callback and returning it before responding.
//
// The Query Layer is path-addressed throughout (a path is resolved fresh on
// every call, per spec §4.2), while the kernel's low-level FUSE protocol is
// inode-addressed. This package bridges the two the same way the teacher's
// own GCS-backed adapter bridges inode IDs to GCS object names: a
// lock-protected map from fuseops.InodeID to the path it was last looked up
// under, populated on lookup/creation and cleared on ForgetInode.
package fs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/vGimly/mysqlfs/common"
	"github.com/vGimly/mysqlfs/internal/pool"
	"github.com/vGimly/mysqlfs/internal/store"
	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// attrTTL bounds how long the kernel may cache attributes and directory
// entries it receives from us. Mutations always go through this process, so
// there is no consistency reason to cache briefly, but an unbounded TTL would
// leave stale metadata visible after an out-of-band schema edit; a minute is
// a reasonable middle ground.
const attrTTL = time.Minute

// ServerConfig carries everything NewServer needs to build a fuse.Server
// over a mysqlfs-backed store.
type ServerConfig struct {
	// Pool hands out database sessions, one per callback.
	Pool *pool.Pool

	// Store is the Query Layer bound to the mount's table names and clock.
	Store *store.Store

	// Uid and Gid own every inode this process creates. The kernel's
	// low-level protocol does not expose the calling process's credentials
	// to every op in a form this adapter can rely on, so ownership of newly
	// created inodes is the mount's configured identity rather than the
	// caller's -- matching how the mount is typically run as a single
	// dedicated user with default_permissions left to the kernel.
	Uid uint32
	Gid uint32

	// Metrics records op counts, error counts, and latencies. Nil means no
	// metrics are collected.
	Metrics common.MetricHandle
}

// NewServer builds a fuse.Server ready to be passed to fuse.Mount.
func NewServer(cfg *ServerConfig) (fuse.Server, error) {
	if cfg.Pool == nil || cfg.Store == nil {
		return nil, fmt.Errorf("fs.NewServer: Pool and Store are required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = common.NewNoopMetrics()
	}

	fs := &fileSystem{
		pool:    cfg.Pool,
		store:   cfg.Store,
		uid:     cfg.Uid,
		gid:     cfg.Gid,
		metrics: metrics,

		paths:       map[fuseops.InodeID]*pathEntry{fuseops.RootInodeID: {path: "/", lookupCount: 1}},
		dirHandles:  make(map[fuseops.HandleID]*dirHandle),
		fileHandles: make(map[fuseops.HandleID]*fileHandle),
		nextHandle:  1,
	}

	return fuseutil.NewFileSystemServer(withMetrics(fs, metrics)), nil
}

// pathEntry is the path an inode was last resolved under, plus the number of
// outstanding kernel lookups referencing it (mirrors inode.lookupCount, but
// destroying on zero here means only "stop tracking", not "delete" -- the
// Query Layer already owns deletion via the Purge Rule).
type pathEntry struct {
	path        string
	lookupCount uint64
}

type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	pool    *pool.Pool
	store   *store.Store
	uid     uint32
	gid     uint32
	metrics common.MetricHandle

	mu          sync.Mutex
	paths       map[fuseops.InodeID]*pathEntry
	dirHandles  map[fuseops.HandleID]*dirHandle
	fileHandles map[fuseops.HandleID]*fileHandle
	nextHandle  fuseops.HandleID
}

// withDB acquires a session for the duration of fn and releases it
// afterward, regardless of outcome -- every Query Layer call in this package
// goes through this helper rather than holding a session across callbacks.
func (fs *fileSystem) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	start := time.Now()
	session, err := fs.pool.Acquire(ctx)
	fs.metrics.PoolAcquireWait(time.Since(start))
	if err != nil {
		return err
	}
	defer fs.pool.Release(session)
	return fn(session.DB)
}

func (fs *fileSystem) pathFor(id fuseops.InodeID) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.paths[id]
	if !ok {
		return "", false
	}
	return e.path, true
}

// registerPath records that inode was reached at p, incrementing its lookup
// count. Called whenever a lookup, creation, or link hands an entry back to
// the kernel.
func (fs *fileSystem) registerPath(id fuseops.InodeID, p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if e, ok := fs.paths[id]; ok {
		e.path = p
		e.lookupCount++
		return
	}
	fs.paths[id] = &pathEntry{path: p, lookupCount: 1}
}

func childPath(parent string, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func (fs *fileSystem) Init(op *fuseops.InitOp) error {
	return nil
}

func (fs *fileSystem) LookUpInode(op *fuseops.LookUpInodeOp) error {
	parent, ok := fs.pathFor(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	childP := childPath(parent, op.Name)

	var ino store.Inode
	var nlinks int
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		ino, nlinks, e = fs.store.GetAttr(op.Context(), db, childP)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	id := fuseops.InodeID(ino.Inode)
	fs.registerPath(id, childP)
	op.Entry = entryFor(id, ino, nlinks)
	return nil
}

func (fs *fileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	var ino store.Inode
	var nlinks int
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		ino, nlinks, e = fs.store.GetAttr(op.Context(), db, p)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	op.Attributes = attrFor(ino, nlinks)
	op.AttributesExpiration = time.Now().Add(attrTTL)
	return nil
}

func (fs *fileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	inode := uint64(op.Inode)

	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		if op.Mode != nil {
			if e := fs.store.Chmod(op.Context(), db, inode, fromFileMode(*op.Mode)); e != nil {
				return e
			}
		}
		if op.Size != nil {
			if e := fs.store.Truncate(op.Context(), db, inode, int64(*op.Size)); e != nil {
				return e
			}
		}
		if op.Atime != nil || op.Mtime != nil {
			atime, mtime := op.Atime, op.Mtime
			var a, m int64
			if atime != nil {
				a = atime.Unix()
			}
			if mtime != nil {
				m = mtime.Unix()
			}
			if e := fs.store.Utime(op.Context(), db, inode, a, m); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	p, _ := fs.pathFor(op.Inode)
	return fs.withDB(op.Context(), func(db *sql.DB) error {
		ino, nlinks, e := fs.store.GetAttr(op.Context(), db, p)
		if e != nil {
			return e
		}
		op.Attributes = attrFor(ino, nlinks)
		return nil
	})
}

func (fs *fileSystem) ForgetInode(op *fuseops.ForgetInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e, ok := fs.paths[op.Inode]
	if !ok {
		return nil
	}
	if uint64(op.N) >= e.lookupCount {
		delete(fs.paths, op.Inode)
		return nil
	}
	e.lookupCount -= uint64(op.N)
	return nil
}

func (fs *fileSystem) mkNod(ctx context.Context, parent fuseops.InodeID, name string, mode os.FileMode) (fuseops.ChildInodeEntry, error) {
	parentPath, ok := fs.pathFor(parent)
	if !ok {
		return fuseops.ChildInodeEntry{}, fuse.ENOENT
	}
	childP := childPath(parentPath, name)

	var id uint64
	err := fs.withDB(ctx, func(db *sql.DB) error {
		var e error
		id, e = fs.store.MkNod(ctx, db, childP, fromFileMode(mode), fs.uid, fs.gid)
		return e
	})
	if err != nil {
		return fuseops.ChildInodeEntry{}, err
	}

	var ino store.Inode
	var nlinks int
	err = fs.withDB(ctx, func(db *sql.DB) error {
		var e error
		ino, nlinks, e = fs.store.GetAttr(ctx, db, childP)
		return e
	})
	if err != nil {
		return fuseops.ChildInodeEntry{}, err
	}

	childID := fuseops.InodeID(id)
	fs.registerPath(childID, childP)
	return entryFor(childID, ino, nlinks), nil
}

func (fs *fileSystem) MkDir(op *fuseops.MkDirOp) error {
	entry, err := fs.mkNod(op.Context(), op.Parent, op.Name, op.Mode|os.ModeDir)
	if err != nil {
		return storeerr.Errno(err)
	}
	op.Entry = entry
	return nil
}

func (fs *fileSystem) CreateFile(op *fuseops.CreateFileOp) error {
	entry, err := fs.mkNod(op.Context(), op.Parent, op.Name, op.Mode)
	if err != nil {
		return storeerr.Errno(err)
	}

	inode := uint64(entry.Child)
	if err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.Open(op.Context(), db, inode)
	}); err != nil {
		return storeerr.Errno(err)
	}

	h := fs.allocHandle()
	fs.mu.Lock()
	fs.fileHandles[h] = &fileHandle{inode: inode}
	fs.mu.Unlock()

	op.Entry = entry
	op.Handle = h
	return nil
}

func (fs *fileSystem) CreateSymlink(op *fuseops.CreateSymlinkOp) error {
	entry, err := fs.mkNod(op.Context(), op.Parent, op.Name, os.ModeSymlink|0777)
	if err != nil {
		return storeerr.Errno(err)
	}

	if err := fs.withDB(op.Context(), func(db *sql.DB) error {
		_, e := fs.store.Write(op.Context(), db, uint64(entry.Child), []byte(op.Target), 0)
		return e
	}); err != nil {
		return storeerr.Errno(err)
	}

	op.Entry = entry
	return nil
}

func (fs *fileSystem) ReadSymlink(op *fuseops.ReadSymlinkOp) error {
	p, ok := fs.pathFor(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	var data []byte
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		ino, _, e := fs.store.GetAttr(op.Context(), db, p)
		if e != nil {
			return e
		}
		data, e = fs.store.Read(op.Context(), db, ino.Inode, int64(ino.Size), 0)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}
	op.Target = string(data)
	return nil
}

func (fs *fileSystem) unlinkOrRmDir(ctx context.Context, parent fuseops.InodeID, name string) error {
	parentPath, ok := fs.pathFor(parent)
	if !ok {
		return fuse.ENOENT
	}
	if err := fs.withDB(ctx, func(db *sql.DB) error {
		return fs.store.Unlink(ctx, db, childPath(parentPath, name))
	}); err != nil {
		return storeerr.Errno(err)
	}
	return nil
}

func (fs *fileSystem) RmDir(op *fuseops.RmDirOp) error {
	return fs.unlinkOrRmDir(op.Context(), op.Parent, op.Name)
}

func (fs *fileSystem) Unlink(op *fuseops.UnlinkOp) error {
	return fs.unlinkOrRmDir(op.Context(), op.Parent, op.Name)
}

func (fs *fileSystem) CreateLink(op *fuseops.CreateLinkOp) error {
	fromPath, ok := fs.pathFor(op.Target)
	if !ok {
		return fuse.ENOENT
	}
	parentPath, ok := fs.pathFor(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	toPath := childPath(parentPath, op.Name)

	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.Link(op.Context(), db, fromPath, toPath)
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	var ino store.Inode
	var nlinks int
	err = fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		ino, nlinks, e = fs.store.GetAttr(op.Context(), db, toPath)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	fs.registerPath(op.Target, toPath)
	op.Entry = entryFor(op.Target, ino, nlinks)
	return nil
}

func (fs *fileSystem) Rename(op *fuseops.RenameOp) error {
	oldParent, ok := fs.pathFor(op.OldParent)
	if !ok {
		return fuse.ENOENT
	}
	newParent, ok := fs.pathFor(op.NewParent)
	if !ok {
		return fuse.ENOENT
	}
	from := childPath(oldParent, op.OldName)
	to := childPath(newParent, op.NewName)

	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		return fs.store.Rename(op.Context(), db, from, to)
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	fs.mu.Lock()
	for _, e := range fs.paths {
		if e.path == from {
			e.path = to
			continue
		}
		if strings.HasPrefix(e.path, from+"/") {
			e.path = to + strings.TrimPrefix(e.path, from)
		}
	}
	fs.mu.Unlock()
	return nil
}

func (fs *fileSystem) StatFS(op *fuseops.StatFSOp) error {
	var s store.StatFS
	err := fs.withDB(op.Context(), func(db *sql.DB) error {
		var e error
		s, e = fs.store.StatFS(op.Context(), db)
		return e
	})
	if err != nil {
		return storeerr.Errno(err)
	}

	op.BlockSize = uint32(s.Bsize)
	op.Blocks = s.Blocks
	op.BlocksFree = s.Bfree
	op.BlocksAvailable = s.Bavail
	op.IoSize = uint32(s.Frsize)
	op.Inodes = s.Files
	op.InodesFree = s.Ffree
	return nil
}

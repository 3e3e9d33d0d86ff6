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
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/vGimly/mysqlfs/common"
)

// withMetrics wraps inner so every op it handles is counted, timed, and
// counted again on error, the same way the teacher wraps its own
// fuseutil.FileSystem before handing it to the server. Methods this package
// doesn't override fall through to inner via the embedded interface.
func withMetrics(inner fuseutil.FileSystem, m common.MetricHandle) fuseutil.FileSystem {
	return &instrumentedFileSystem{FileSystem: inner, m: m}
}

type instrumentedFileSystem struct {
	fuseutil.FileSystem
	m common.MetricHandle
}

func (i *instrumentedFileSystem) record(op string, start time.Time, err error) error {
	i.m.OpCount(op)
	i.m.OpLatency(op, time.Since(start))
	if err != nil {
		i.m.OpErrorCount(op)
	}
	return err
}

func (i *instrumentedFileSystem) StatFS(op *fuseops.StatFSOp) error {
	start := time.Now()
	return i.record(common.OpStatFS, start, i.FileSystem.StatFS(op))
}

func (i *instrumentedFileSystem) LookUpInode(op *fuseops.LookUpInodeOp) error {
	start := time.Now()
	return i.record(common.OpLookUpInode, start, i.FileSystem.LookUpInode(op))
}

func (i *instrumentedFileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	start := time.Now()
	return i.record(common.OpGetInodeAttributes, start, i.FileSystem.GetInodeAttributes(op))
}

func (i *instrumentedFileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	start := time.Now()
	return i.record(common.OpSetInodeAttributes, start, i.FileSystem.SetInodeAttributes(op))
}

func (i *instrumentedFileSystem) ForgetInode(op *fuseops.ForgetInodeOp) error {
	start := time.Now()
	return i.record(common.OpForgetInode, start, i.FileSystem.ForgetInode(op))
}

func (i *instrumentedFileSystem) MkDir(op *fuseops.MkDirOp) error {
	start := time.Now()
	return i.record(common.OpMkDir, start, i.FileSystem.MkDir(op))
}

func (i *instrumentedFileSystem) CreateFile(op *fuseops.CreateFileOp) error {
	start := time.Now()
	return i.record(common.OpCreateFile, start, i.FileSystem.CreateFile(op))
}

func (i *instrumentedFileSystem) CreateLink(op *fuseops.CreateLinkOp) error {
	start := time.Now()
	return i.record(common.OpCreateLink, start, i.FileSystem.CreateLink(op))
}

func (i *instrumentedFileSystem) CreateSymlink(op *fuseops.CreateSymlinkOp) error {
	start := time.Now()
	return i.record(common.OpCreateSymlink, start, i.FileSystem.CreateSymlink(op))
}

func (i *instrumentedFileSystem) Rename(op *fuseops.RenameOp) error {
	start := time.Now()
	return i.record(common.OpRename, start, i.FileSystem.Rename(op))
}

func (i *instrumentedFileSystem) RmDir(op *fuseops.RmDirOp) error {
	start := time.Now()
	return i.record(common.OpRmDir, start, i.FileSystem.RmDir(op))
}

func (i *instrumentedFileSystem) Unlink(op *fuseops.UnlinkOp) error {
	start := time.Now()
	return i.record(common.OpUnlink, start, i.FileSystem.Unlink(op))
}

func (i *instrumentedFileSystem) OpenDir(op *fuseops.OpenDirOp) error {
	start := time.Now()
	return i.record(common.OpOpenDir, start, i.FileSystem.OpenDir(op))
}

func (i *instrumentedFileSystem) ReadDir(op *fuseops.ReadDirOp) error {
	start := time.Now()
	return i.record(common.OpReadDir, start, i.FileSystem.ReadDir(op))
}

func (i *instrumentedFileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	start := time.Now()
	return i.record(common.OpReleaseDirHandle, start, i.FileSystem.ReleaseDirHandle(op))
}

func (i *instrumentedFileSystem) OpenFile(op *fuseops.OpenFileOp) error {
	start := time.Now()
	return i.record(common.OpOpenFile, start, i.FileSystem.OpenFile(op))
}

func (i *instrumentedFileSystem) ReadFile(op *fuseops.ReadFileOp) error {
	start := time.Now()
	return i.record(common.OpReadFile, start, i.FileSystem.ReadFile(op))
}

func (i *instrumentedFileSystem) WriteFile(op *fuseops.WriteFileOp) error {
	start := time.Now()
	return i.record(common.OpWriteFile, start, i.FileSystem.WriteFile(op))
}

func (i *instrumentedFileSystem) SyncFile(op *fuseops.SyncFileOp) error {
	start := time.Now()
	return i.record(common.OpSyncFile, start, i.FileSystem.SyncFile(op))
}

func (i *instrumentedFileSystem) FlushFile(op *fuseops.FlushFileOp) error {
	start := time.Now()
	return i.record(common.OpFlushFile, start, i.FileSystem.FlushFile(op))
}

func (i *instrumentedFileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	start := time.Now()
	return i.record(common.OpReleaseFileHandle, start, i.FileSystem.ReleaseFileHandle(op))
}

func (i *instrumentedFileSystem) ReadSymlink(op *fuseops.ReadSymlinkOp) error {
	start := time.Now()
	return i.record(common.OpReadSymlink, start, i.FileSystem.ReadSymlink(op))
}

func (i *instrumentedFileSystem) RemoveXattr(op *fuseops.RemoveXattrOp) error {
	start := time.Now()
	return i.record(common.OpRemoveXattr, start, i.FileSystem.RemoveXattr(op))
}

func (i *instrumentedFileSystem) GetXattr(op *fuseops.GetXattrOp) error {
	start := time.Now()
	return i.record(common.OpGetXattr, start, i.FileSystem.GetXattr(op))
}

func (i *instrumentedFileSystem) ListXattr(op *fuseops.ListXattrOp) error {
	start := time.Now()
	return i.record(common.OpListXattr, start, i.FileSystem.ListXattr(op))
}

func (i *instrumentedFileSystem) SetXattr(op *fuseops.SetXattrOp) error {
	start := time.Now()
	return i.record(common.OpSetXattr, start, i.FileSystem.SetXattr(op))
}

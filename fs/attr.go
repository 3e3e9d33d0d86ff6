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
	"os"
	"time"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/vGimly/mysqlfs/internal/block"
	"github.com/vGimly/mysqlfs/internal/store"
)

// POSIX file-type bits, isolated by store.TypeMask.
const (
	sIFDIR  = 0040000
	sIFREG  = 0100000
	sIFLNK  = 0120000
	modeFmt = 0170000
)

// toFileMode converts a raw inodes.mode column value into an os.FileMode,
// translating the S_IFMT type bits gcsfuse's own inode package has no
// analogue for (GCS objects are either "implicit" directories or regular
// files; mysqlfs stores symlinks as a real inode type).
func toFileMode(raw uint32) os.FileMode {
	perm := os.FileMode(raw & 0777)
	switch raw & modeFmt {
	case sIFDIR:
		return perm | os.ModeDir
	case sIFLNK:
		return perm | os.ModeSymlink
	default:
		return perm
	}
}

// fromFileMode is toFileMode's inverse.
func fromFileMode(m os.FileMode) uint32 {
	perm := uint32(m.Perm())
	switch {
	case m&os.ModeDir != 0:
		return perm | sIFDIR
	case m&os.ModeSymlink != 0:
		return perm | sIFLNK
	default:
		return perm | sIFREG
	}
}

func attrFor(ino store.Inode, nlinks int) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   ino.Size,
		Nlink:  uint32(nlinks),
		Mode:   toFileMode(ino.Mode),
		Atime:  time.Unix(ino.Atime, 0),
		Mtime:  time.Unix(ino.Mtime, 0),
		Ctime:  time.Unix(ino.Ctime, 0),
		Uid:    ino.UID,
		Gid:    ino.GID,
		Blocks: uint64(block.StatBlocks512(int64(ino.Size))),
	}
}

func entryFor(id fuseops.InodeID, ino store.Inode, nlinks int) fuseops.ChildInodeEntry {
	return fuseops.ChildInodeEntry{
		Child:                id,
		Attributes:           attrFor(ino, nlinks),
		AttributesExpiration: time.Now().Add(attrTTL),
		EntryExpiration:      time.Now().Add(attrTTL),
	}
}

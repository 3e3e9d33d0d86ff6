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
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"

	"github.com/vGimly/mysqlfs/common"
)

func TestChildPath_RootParent(t *testing.T) {
	assert.Equal(t, "/foo", childPath("/", "foo"))
}

func TestChildPath_NestedParent(t *testing.T) {
	assert.Equal(t, "/a/b/c", childPath("/a/b", "c"))
}

func newTestFS() *fileSystem {
	return &fileSystem{
		metrics:     common.NewNoopMetrics(),
		paths:       map[fuseops.InodeID]*pathEntry{fuseops.RootInodeID: {path: "/", lookupCount: 1}},
		dirHandles:  make(map[fuseops.HandleID]*dirHandle),
		fileHandles: make(map[fuseops.HandleID]*fileHandle),
		nextHandle:  1,
	}
}

func TestRegisterPath_NewInodeStartsLookupCountAtOne(t *testing.T) {
	f := newTestFS()
	f.registerPath(42, "/foo")

	p, ok := f.pathFor(42)
	assert.True(t, ok)
	assert.Equal(t, "/foo", p)
	assert.EqualValues(t, 1, f.paths[42].lookupCount)
}

func TestRegisterPath_RepeatedLookupIncrementsCount(t *testing.T) {
	f := newTestFS()
	f.registerPath(42, "/foo")
	f.registerPath(42, "/foo")

	assert.EqualValues(t, 2, f.paths[42].lookupCount)
}

func TestForgetInode_PartialDecrementKeepsEntry(t *testing.T) {
	f := newTestFS()
	f.registerPath(42, "/foo")
	f.registerPath(42, "/foo")

	err := f.ForgetInode(&fuseops.ForgetInodeOp{Inode: 42, N: 1})
	assert.NoError(t, err)

	p, ok := f.pathFor(42)
	assert.True(t, ok)
	assert.Equal(t, "/foo", p)
}

func TestForgetInode_FullDecrementRemovesEntry(t *testing.T) {
	f := newTestFS()
	f.registerPath(42, "/foo")

	err := f.ForgetInode(&fuseops.ForgetInodeOp{Inode: 42, N: 1})
	assert.NoError(t, err)

	_, ok := f.pathFor(42)
	assert.False(t, ok)
}

func TestForgetInode_UnknownInodeIsNoop(t *testing.T) {
	f := newTestFS()
	err := f.ForgetInode(&fuseops.ForgetInodeOp{Inode: 999, N: 1})
	assert.NoError(t, err)
}

func TestAllocHandle_IncrementsMonotonically(t *testing.T) {
	f := newTestFS()
	h1 := f.allocHandle()
	h2 := f.allocHandle()
	assert.Less(t, uint64(h1), uint64(h2))
}

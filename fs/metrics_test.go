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
	"errors"
	"testing"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stretchr/testify/assert"

	"github.com/vGimly/mysqlfs/common"
)

type fakeMetrics struct {
	counts  map[string]int
	errors  map[string]int
	latency map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: map[string]int{}, errors: map[string]int{}, latency: map[string]int{}}
}

func (f *fakeMetrics) OpCount(op string)      { f.counts[op]++ }
func (f *fakeMetrics) OpErrorCount(op string) { f.errors[op]++ }
func (f *fakeMetrics) OpLatency(op string, _ time.Duration) {
	f.latency[op]++
}
func (f *fakeMetrics) PoolInUse(int)                 {}
func (f *fakeMetrics) PoolIdle(int)                  {}
func (f *fakeMetrics) PoolAcquireWait(time.Duration) {}

type stubFileSystem struct {
	fuseutil.NotImplementedFileSystem
	statFSErr error
}

func (s *stubFileSystem) StatFS(op *fuseops.StatFSOp) error {
	return s.statFSErr
}

func TestInstrumentedFileSystem_SuccessCountsButNotErrors(t *testing.T) {
	metrics := newFakeMetrics()
	wrapped := withMetrics(&stubFileSystem{}, metrics)

	err := wrapped.StatFS(&fuseops.StatFSOp{})

	assert.NoError(t, err)
	assert.Equal(t, 1, metrics.counts[common.OpStatFS])
	assert.Equal(t, 1, metrics.latency[common.OpStatFS])
	assert.Equal(t, 0, metrics.errors[common.OpStatFS])
}

func TestInstrumentedFileSystem_FailurePropagatesAndCountsError(t *testing.T) {
	metrics := newFakeMetrics()
	wantErr := errors.New("boom")
	wrapped := withMetrics(&stubFileSystem{statFSErr: wantErr}, metrics)

	err := wrapped.StatFS(&fuseops.StatFSOp{})

	assert.Equal(t, wantErr, err)
	assert.Equal(t, 1, metrics.counts[common.OpStatFS])
	assert.Equal(t, 1, metrics.errors[common.OpStatFS])
}

func TestInstrumentedFileSystem_TracksEachOpUnderItsOwnName(t *testing.T) {
	metrics := newFakeMetrics()
	wrapped := withMetrics(&stubFileSystem{}, metrics)

	_ = wrapped.StatFS(&fuseops.StatFSOp{})
	_ = wrapped.ForgetInode(&fuseops.ForgetInodeOp{})

	assert.Equal(t, 1, metrics.counts[common.OpStatFS])
	assert.Equal(t, 1, metrics.counts[common.OpForgetInode])
	assert.Equal(t, 0, metrics.counts[common.OpReadFile])
}

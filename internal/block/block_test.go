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

package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_SingleBlockWithinBounds(t *testing.T) {
	r := Compute(10, 0)

	assert.Equal(t, int64(0), r.SeqFirst)
	assert.Equal(t, int64(0), r.OffsetFirst)
	assert.Equal(t, int64(10), r.LengthFirst)
	assert.Equal(t, int64(0), r.SeqLast)
	assert.Equal(t, int64(10), r.LengthLast)
	assert.False(t, r.Spans())
}

func TestCompute_SingleByteAtBlockTwo(t *testing.T) {
	// write 1 byte "X" at offset 8192 -- spec §4's end-to-end scenario 2.
	r := Compute(1, 8192)

	assert.Equal(t, int64(2), r.SeqFirst)
	assert.Equal(t, int64(0), r.OffsetFirst)
	assert.Equal(t, int64(1), r.LengthLast)
	assert.Equal(t, int64(2), r.SeqLast)
}

func TestCompute_SpansThreeBlocksNonAligned(t *testing.T) {
	// A write starting mid-block-0, crossing block 1 entirely, ending
	// mid-block-2.
	offset := int64(100)
	size := int64(2*Size + 50)
	r := Compute(size, offset)

	assert.Equal(t, int64(0), r.SeqFirst)
	assert.Equal(t, int64(100), r.OffsetFirst)
	assert.Equal(t, int64(Size-100), r.LengthFirst)
	assert.Equal(t, int64(2), r.SeqLast)
	assert.Equal(t, int64(150), r.LengthLast)
	assert.True(t, r.Spans())
	assert.False(t, r.BoundaryAligned())
}

func TestCompute_EndsExactlyOnBoundary(t *testing.T) {
	r := Compute(Size, 0)

	assert.Equal(t, int64(0), r.SeqFirst)
	assert.Equal(t, int64(Size), r.LengthFirst)
	assert.Equal(t, int64(1), r.SeqLast)
	assert.Equal(t, int64(0), r.LengthLast)
	assert.True(t, r.BoundaryAligned())
}

func TestCompute_ZeroSizeRequest(t *testing.T) {
	r := Compute(0, 42)

	assert.Equal(t, int64(0), r.SeqFirst)
	assert.Equal(t, int64(42), r.OffsetFirst)
	assert.Equal(t, int64(0), r.LengthFirst)
	assert.Equal(t, int64(0), r.SeqLast)
	assert.Equal(t, int64(42), r.LengthLast)
}

func TestBlockCount(t *testing.T) {
	assert.Equal(t, int64(0), BlockCount(0))
	assert.Equal(t, int64(1), BlockCount(1))
	assert.Equal(t, int64(1), BlockCount(Size))
	assert.Equal(t, int64(2), BlockCount(Size+1))
}

func TestStatBlocks512(t *testing.T) {
	assert.Equal(t, int64(0), StatBlocks512(0))
	assert.Equal(t, int64(1), StatBlocks512(1))
	assert.Equal(t, int64(1), StatBlocks512(512))
	assert.Equal(t, int64(2), StatBlocks512(513))
	assert.Equal(t, int64(17), StatBlocks512(8193))
}

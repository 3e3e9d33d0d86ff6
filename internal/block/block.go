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

// Package block implements the pure arithmetic that maps a file byte range
// onto the sequence of fixed-size rows in data_blocks (spec §4.1). Nothing in
// this package touches the database; it exists so the query layer can be
// tested without one.
package block

// Size is the fixed width, in bytes, of a data_blocks row's payload before
// the final (possibly short) block of a file. It mirrors the C
// implementation's DATA_BLOCK_SIZE compile-time constant.
const Size = 4096

// Range describes how a request of Size bytes at Offset decomposes into
// block rows.
type Range struct {
	// SeqFirst is the sequence number of the first block touched.
	SeqFirst int64
	// OffsetFirst is the byte offset within that first block.
	OffsetFirst int64
	// LengthFirst is the number of bytes taken from (or written into) the
	// first block.
	LengthFirst int64
	// SeqLast is the sequence number of the last block touched. Equal to
	// SeqFirst when the request fits in a single block.
	SeqLast int64
	// LengthLast is (OffsetFirst+size) mod Size, the offset within block
	// SeqLast at which the request ends. When the request spans blocks it is
	// the number of bytes taken from the last block. It is zero exactly when
	// the request ends precisely on a block boundary; in that case SeqLast
	// names the first sequence past the request and must not be touched by
	// the caller.
	LengthLast int64
}

// Compute derives the Range for a request of size bytes at offset, per
// spec §4.1's formula.
func Compute(size, offset int64) Range {
	seqFirst := offset / Size
	offsetFirst := offset % Size
	k := (offsetFirst + size) / Size

	lengthFirst := size
	if k > 0 {
		lengthFirst = Size - offsetFirst
	}

	return Range{
		SeqFirst:    seqFirst,
		OffsetFirst: offsetFirst,
		LengthFirst: lengthFirst,
		SeqLast:     seqFirst + k,
		LengthLast:  (offsetFirst + size) % Size,
	}
}

// Spans reports whether the range covers more than one block (SeqLast is
// strictly past SeqFirst and LengthLast is non-zero, or SeqLast > SeqFirst).
func (r Range) Spans() bool {
	return r.SeqLast != r.SeqFirst
}

// BoundaryAligned reports whether the request ends exactly on a block
// boundary -- the case where LengthLast is 0 and SeqLast must be skipped by
// read/write/truncate callers rather than treated as a partial block.
func (r Range) BoundaryAligned() bool {
	return r.LengthLast == 0
}

// BlockCount returns ceil(size/B), the number of blocks needed to hold size
// bytes -- used for st_blocks-style accounting (note spec §4.3 computes
// st_blocks as ceil(size/512), a different, POSIX-mandated constant; this
// helper is for block-row counts, not stat blocks).
func BlockCount(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + Size - 1) / Size
}

// StatBlocks512 returns ceil(size/512), the value getattr reports as
// st_blocks regardless of the storage block size (spec §4.3).
func StatBlocks512(size int64) int64 {
	if size <= 0 {
		return 0
	}
	const statBlockSize = 512
	return (size + statBlockSize - 1) / statBlockSize
}

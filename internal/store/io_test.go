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

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceOrZero_WithinBounds(t *testing.T) {
	data := []byte("abcdef")
	assert.Equal(t, []byte("cd"), sliceOrZero(data, 2, 2))
}

func TestSliceOrZero_ShortDataYieldsAllZeroes(t *testing.T) {
	data := []byte("ab")
	got := sliceOrZero(data, 0, 4)
	assert.Equal(t, []byte{0, 0, 0, 0}, got)
}

func TestSliceOrZero_ZeroLength(t *testing.T) {
	assert.Nil(t, sliceOrZero([]byte("abc"), 0, 0))
}

func TestMin64(t *testing.T) {
	assert.Equal(t, int64(3), min64(3, 5))
	assert.Equal(t, int64(3), min64(5, 3))
}

func TestTypeMask_IsolatesFileTypeBits(t *testing.T) {
	// S_IFREG | 0644
	mode := uint32(0100644)
	assert.Equal(t, uint32(0100000), mode&TypeMask)
}

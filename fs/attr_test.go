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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFileMode_Directory(t *testing.T) {
	m := toFileMode(sIFDIR | 0755)
	assert.Equal(t, os.ModeDir, m&os.ModeDir)
	assert.Equal(t, os.FileMode(0755), m.Perm())
}

func TestToFileMode_Symlink(t *testing.T) {
	m := toFileMode(sIFLNK | 0777)
	assert.Equal(t, os.ModeSymlink, m&os.ModeSymlink)
}

func TestToFileMode_Regular(t *testing.T) {
	m := toFileMode(sIFREG | 0644)
	assert.Equal(t, os.FileMode(0), m&(os.ModeDir|os.ModeSymlink))
	assert.Equal(t, os.FileMode(0644), m.Perm())
}

func TestFromFileMode_RoundTripsThroughToFileMode(t *testing.T) {
	cases := []os.FileMode{
		os.ModeDir | 0755,
		os.ModeSymlink | 0777,
		0644,
	}
	for _, m := range cases {
		raw := fromFileMode(m)
		assert.Equal(t, m&(os.ModeDir|os.ModeSymlink), toFileMode(raw)&(os.ModeDir|os.ModeSymlink))
		assert.Equal(t, m.Perm(), toFileMode(raw).Perm())
	}
}

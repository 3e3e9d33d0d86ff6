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

func TestSplitPath_DiscardsEmptyComponents(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPath("/a/b"))
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//b/"))
	assert.Equal(t, []string{}, splitPath("/"))
}

func TestSplit_Root(t *testing.T) {
	dir, base := Split("/")
	assert.Equal(t, "/", dir)
	assert.Equal(t, "", base)
}

func TestSplit_TopLevel(t *testing.T) {
	dir, base := Split("/foo")
	assert.Equal(t, "/", dir)
	assert.Equal(t, "foo", base)
}

func TestSplit_Nested(t *testing.T) {
	dir, base := Split("/a/b/c")
	assert.Equal(t, "/a/b", dir)
	assert.Equal(t, "c", base)
}

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

package storeerr

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrno_MapsEveryKind(t *testing.T) {
	cases := []struct {
		kind Kind
		want syscall.Errno
	}{
		{NotFound, syscall.ENOENT},
		{NotEmpty, syscall.ENOTEMPTY},
		{NameTooLong, syscall.ENAMETOOLONG},
		{TooManyOpen, syscall.EMFILE},
		{IOError, syscall.EIO},
		{Inval, syscall.EINVAL},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Errno(New("op", c.kind)))
	}
}

func TestErrno_Nil(t *testing.T) {
	assert.Equal(t, syscall.Errno(0), Errno(nil))
}

func TestErrno_UnclassifiedDefaultsToIOError(t *testing.T) {
	assert.Equal(t, syscall.EIO, Errno(errors.New("boom")))
}

func TestWrap_NilErrReturnsNilError(t *testing.T) {
	var err *Error = Wrap("op", IOError, nil)
	assert.Nil(t, err)
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap("dial", IOError, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "IO_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf_NonErrorDefaultsToIOError(t *testing.T) {
	assert.Equal(t, IOError, KindOf(errors.New("whatever")))
}

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

package pool

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession builds a *Session around a lazily-opened *sql.DB. sql.Open
// never dials the network, so this is safe to use without a live MySQL
// server as long as the test never triggers an actual query or Ping.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	db, err := sql.Open("mysql", "root:root@tcp(127.0.0.1:3306)/unused")
	require.NoError(t, err)
	return &Session{DB: db}
}

func newTestPool(capacity int) *Pool {
	return &Pool{
		idle:    make(chan *Session, capacity),
		ceiling: int64(capacity),
	}
}

func TestRelease_BuffersWhenRoomAvailable(t *testing.T) {
	p := newTestPool(2)
	s := newTestSession(t)
	p.opened = 1

	p.Release(s)

	assert.Equal(t, 1, p.Idle())
	assert.Equal(t, 0, p.InUse())
}

func TestRelease_ClosesWhenIdleBufferFull(t *testing.T) {
	p := newTestPool(1)
	p.idle <- newTestSession(t) // fill the one slot
	p.opened = 2

	overflow := newTestSession(t)
	p.Release(overflow)

	assert.Equal(t, 1, p.Idle())
	// The overflow session was closed and opened was decremented, leaving
	// the checked-out count at 0 even though one session is still idle.
	assert.Equal(t, 0, p.InUse())
}

func TestRelease_NilIsNoop(t *testing.T) {
	p := newTestPool(1)
	assert.NotPanics(t, func() { p.Release(nil) })
	assert.Equal(t, 0, p.Idle())
}

func TestClose_DrainsIdleSessionsAndRejectsFurtherReleases(t *testing.T) {
	p := newTestPool(2)
	p.idle <- newTestSession(t)
	p.idle <- newTestSession(t)
	p.opened = 2

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Idle())

	// A release after Close must close its argument rather than buffering
	// it into a closed channel.
	assert.NotPanics(t, func() { p.Release(newTestSession(t)) })
}

func TestClose_Idempotent(t *testing.T) {
	p := newTestPool(1)
	require.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestInUse_CountsCheckedOutSessions(t *testing.T) {
	p := newTestPool(3)
	p.opened = 3
	p.idle <- newTestSession(t)

	assert.Equal(t, 2, p.InUse())
	assert.Equal(t, 1, p.Idle())
}

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

// Package pool implements the bounded connection pool described in
// spec §5: a fixed-capacity set of live *sql.DB-backed sessions handed out
// one-per-callback, ping-validated before reuse, with acquisition blocking
// up to a configurable deadline once the ceiling is reached. It expresses
// the mutex-and-condition-variable pool from the original design as a
// bounded channel instead: release is a send, acquire is a receive.
package pool

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vGimly/mysqlfs/internal/storeerr"
)

// Session is a single pooled database connection. FS Adapter callbacks
// borrow one, issue their SQL against it, and return it -- per spec §5's
// per-session-exclusivity contract, a Session is never shared between two
// concurrent callbacks.
type Session struct {
	DB *sql.DB
}

// Pool is a bounded, channel-backed pool of *Session values opened against
// a single DSN.
type Pool struct {
	dsn string

	idle chan *Session

	// opened counts live sessions (idle + checked-out); it is the ceiling
	// counter named in spec §5's "shared mutable state" list.
	opened int64
	// ceiling is the maximum number of sessions ever open concurrently.
	ceiling int64

	acquireTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Config parameterizes a new Pool.
type Config struct {
	// DSN is the go-sql-driver/mysql data source name.
	DSN string
	// InitConns is the number of sessions opened eagerly by Open.
	InitConns int
	// MaxIdlingConns bounds the channel buffer -- the number of sessions
	// release can hand back before it must close one instead.
	MaxIdlingConns int
	// MaxOpenConns is the ceiling acquire refuses to exceed; beyond it,
	// acquire fails with TooManyOpen rather than opening another session.
	MaxOpenConns int
	// AcquireTimeout bounds how long Acquire waits for a session to free up
	// once MaxOpenConns is reached, before giving up with TooManyOpen.
	AcquireTimeout time.Duration
}

// Open dials InitConns sessions against DSN, validates each with a ping,
// and returns a Pool ready to serve Acquire/Release. It does not verify
// schema presence or run fsck -- that is the caller's job (the mount
// command), composing this package with internal/schema and internal/fsck.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	p := &Pool{
		dsn:            cfg.DSN,
		idle:           make(chan *Session, cfg.MaxIdlingConns),
		ceiling:        int64(cfg.MaxOpenConns),
		acquireTimeout: cfg.AcquireTimeout,
	}

	for i := 0; i < cfg.InitConns; i++ {
		s, err := p.dial(ctx)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.idle <- s
	}

	return p, nil
}

func (p *Pool) dial(ctx context.Context) (*Session, error) {
	db, err := sql.Open("mysql", p.dsn)
	if err != nil {
		return nil, storeerr.Wrap("pool.dial", storeerr.IOError, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeerr.Wrap("pool.dial", storeerr.IOError, err)
	}
	atomic.AddInt64(&p.opened, 1)
	return &Session{DB: db}, nil
}

// Acquire returns an idle session (validating it with a ping and
// transparently redialing if it is dead), opens a fresh one if the ceiling
// allows, or blocks up to AcquireTimeout waiting for a release before
// failing with TooManyOpen. Callers must call Release exactly once for
// every successful Acquire.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, storeerr.New("pool.Acquire", storeerr.IOError)
	}

	select {
	case s := <-p.idle:
		if err := s.DB.PingContext(ctx); err != nil {
			s.DB.Close()
			atomic.AddInt64(&p.opened, -1)
			return p.dial(ctx)
		}
		return s, nil
	default:
	}

	if atomic.LoadInt64(&p.opened) < p.ceiling {
		s, err := p.dial(ctx)
		if err == nil {
			return s, nil
		}
		// Dial failed for a reason other than being at capacity; surface it
		// rather than masking it as TooManyOpen.
		return nil, err
	}

	return p.openOrWait(ctx)
}

// openOrWait is reached once the cheap paths (an idle session, or room
// under the ceiling) are exhausted: wait for a release up to
// AcquireTimeout, or fail with TooManyOpen.
func (p *Pool) openOrWait(ctx context.Context) (*Session, error) {
	timeout := p.acquireTimeout
	if timeout <= 0 {
		return nil, storeerr.New("pool.Acquire", storeerr.TooManyOpen)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s, ok := <-p.idle:
		if !ok {
			return nil, storeerr.New("pool.Acquire", storeerr.IOError)
		}
		if err := s.DB.PingContext(ctx); err != nil {
			s.DB.Close()
			atomic.AddInt64(&p.opened, -1)
			return p.dial(ctx)
		}
		return s, nil
	case <-timer.C:
		return nil, storeerr.New("pool.Acquire", storeerr.TooManyOpen)
	case <-ctx.Done():
		return nil, storeerr.Wrap("pool.Acquire", storeerr.IOError, ctx.Err())
	}
}

// Release returns s to the pool, or closes it if the idle buffer is
// already full -- the channel-send-as-release half of spec §5's
// redesigned pool.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		s.DB.Close()
		atomic.AddInt64(&p.opened, -1)
		return
	}

	select {
	case p.idle <- s:
	default:
		s.DB.Close()
		atomic.AddInt64(&p.opened, -1)
	}
}

// InUse reports the number of sessions currently checked out.
func (p *Pool) InUse() int {
	return int(atomic.LoadInt64(&p.opened)) - len(p.idle)
}

// Idle reports the number of sessions sitting in the idle buffer.
func (p *Pool) Idle() int {
	return len(p.idle)
}

// Close drains and closes every idle session and marks the pool closed;
// subsequent Acquire calls fail and subsequent Release calls close their
// argument immediately instead of re-buffering it.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.idle)
	for s := range p.idle {
		s.DB.Close()
		atomic.AddInt64(&p.opened, -1)
	}
	return nil
}

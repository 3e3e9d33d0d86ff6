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

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/mount"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vGimly/mysqlfs/cfg"
	"github.com/vGimly/mysqlfs/clock"
	"github.com/vGimly/mysqlfs/common"
	fsadapter "github.com/vGimly/mysqlfs/fs"
	"github.com/vGimly/mysqlfs/internal/fsck"
	"github.com/vGimly/mysqlfs/internal/logger"
	"github.com/vGimly/mysqlfs/internal/pool"
	"github.com/vGimly/mysqlfs/internal/schema"
	"github.com/vGimly/mysqlfs/internal/store"
)

// runMount is the whole of the mount command's startup sequence: dial the
// pool, ensure the schema and root row exist, optionally run the repair
// pass, build the Query Layer and FS Adapter, and hand the result to
// fuse.Mount. It returns once the filesystem is unmounted.
func runMount(ctx context.Context, mountPoint string, c *cfg.Config) error {
	if err := logger.InitLogFile(c.Logging); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	if c.MySQL.MycnfGroup != "" {
		logger.Infof("mycnf-group %q ignored: reading my.cnf groups is not supported", c.MySQL.MycnfGroup)
	}

	tables := schema.New(c.MySQL.TablePrefix)

	p, err := pool.Open(ctx, pool.Config{
		DSN:            c.MySQL.DSN(),
		InitConns:      c.Pool.InitConns,
		MaxIdlingConns: c.Pool.MaxIdlingConns,
		MaxOpenConns:   c.Pool.MaxOpenConns,
		AcquireTimeout: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("opening connection pool: %w", err)
	}
	defer p.Close()

	session, err := p.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring bootstrap session: %w", err)
	}

	if err := ensureSchema(ctx, session.DB, tables); err != nil {
		p.Release(session)
		return err
	}

	if c.Mount.Fsck {
		logger.Infof("running consistency repair before mount")
		if err := fsck.Run(ctx, session.DB, tables); err != nil {
			p.Release(session)
			return fmt.Errorf("fsck: %w", err)
		}
	}
	p.Release(session)

	st := store.New(tables, clock.RealClock{})

	metrics, stopMetricsServer := startMetricsServer(c.Metrics)
	defer stopMetricsServer()

	stopPoolSampler := samplePoolStats(p, metrics)
	defer stopPoolSampler()

	server, err := fsadapter.NewServer(&fsadapter.ServerConfig{
		Pool:    p,
		Store:   st,
		Uid:     uint32(os.Getuid()),
		Gid:     uint32(os.Getgid()),
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("building fuse server: %w", err)
	}

	logger.Infof("mounting mysqlfs at %s", mountPoint)
	mfs, err := fuse.Mount(mountPoint, server, getFuseMountConfig(c))
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serving filesystem: %w", err)
	}
	return nil
}

// startMetricsServer builds a registry-backed MetricHandle and, if
// cfg.Metrics.Port is set, serves it on /metrics over localhost. The
// returned stop func is always safe to call and always safe to defer.
func startMetricsServer(c cfg.MetricsConfig) (common.MetricHandle, func()) {
	if c.Port == 0 {
		return common.NewNoopMetrics(), func() {}
	}

	reg := prometheus.NewRegistry()
	metrics := common.NewPrometheusMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", c.Port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("shutting down metrics server: %v", err)
		}
	}
}

// samplePoolStats polls p's in-use/idle gauges every five seconds for as
// long as the mount runs, mirroring the one-poller-per-resource pattern the
// teacher uses for its own GCS bucket-level gauges. The returned stop func
// halts the poller and is always safe to call.
func samplePoolStats(p *pool.Pool, metrics common.MetricHandle) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.PoolInUse(p.InUse())
				metrics.PoolIdle(p.Idle())
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// ensureSchema creates the four-plus-xattrs tables if they don't already
// exist, then seeds the root inode/tree row the first time a fresh schema
// is mounted. The seed is guarded by checking for the root tree row first,
// so a second mount against an already-initialized schema is a no-op.
func ensureSchema(ctx context.Context, db *sql.DB, tables *schema.Tables) error {
	for _, stmt := range tables.CreateStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	var exists int
	err := db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT 1 FROM %s WHERE inode = 1", tables.Tree)).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for root row: %w", err)
	}

	now := time.Now().Unix()
	const rootMode = 0040000 | 0755
	if _, err := db.ExecContext(ctx, tables.SeedRootInodeStatement(), rootMode, now, now, now); err != nil {
		return fmt.Errorf("seeding root inode: %w", err)
	}
	if _, err := db.ExecContext(ctx, tables.SeedRootStatement()); err != nil {
		return fmt.Errorf("seeding root tree row: %w", err)
	}
	return nil
}

// getFuseMountConfig translates the mount-option subset of cfg.MountConfig
// into the options jacobsa/fuse accepts at Mount time.
func getFuseMountConfig(c *cfg.Config) *fuse.MountConfig {
	parsedOptions := make(map[string]string)
	if c.Mount.AllowOther {
		mount.ParseOptions(parsedOptions, "allow_other")
	}
	if c.Mount.DefaultPermissions {
		mount.ParseOptions(parsedOptions, "default_permissions")
	}

	mountCfg := &fuse.MountConfig{
		FSName:     "mysqlfs",
		Subtype:    "mysqlfs",
		VolumeName: "mysqlfs",
		Options:    parsedOptions,

		// Every callback borrows its own pooled session, so concurrent
		// lookups and readdirs never contend on process-wide state.
		EnableParallelDirOps: true,
		EnableReaddirplus:    c.Mount.BigWrites,
	}

	if c.Logging.Severity.Rank() <= cfg.ErrorLogSeverity.Rank() {
		mountCfg.ErrorLogger = stdlog.New(os.Stderr, "fuse: ", stdlog.LstdFlags)
	}
	if c.Logging.Severity.Rank() <= cfg.TraceLogSeverity.Rank() {
		mountCfg.DebugLogger = stdlog.New(os.Stderr, "fuse_debug: ", stdlog.LstdFlags)
	}

	return mountCfg
}

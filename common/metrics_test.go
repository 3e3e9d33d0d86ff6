// Copyright 2024 Google LLC
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

package common

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics_DoesNotPanic(t *testing.T) {
	m := NewNoopMetrics()
	m.OpCount(OpReadFile)
	m.OpErrorCount(OpReadFile)
	m.OpLatency(OpReadFile, time.Millisecond)
	m.PoolInUse(1)
	m.PoolIdle(2)
	m.PoolAcquireWait(time.Millisecond)
}

func TestPrometheusMetrics_CountsOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.OpCount(OpReadFile)
	m.OpCount(OpReadFile)
	m.OpErrorCount(OpWriteFile)
	m.PoolInUse(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "mysqlfs_fs_op_count" {
			continue
		}
		found = true
		for _, metric := range f.Metric {
			require.Equal(t, float64(2), metric.GetCounter().GetValue())
			require.Equal(t, "op", metric.Label[0].GetName())
			require.Equal(t, OpReadFile, metric.Label[0].GetValue())
		}
	}
	require.True(t, found, "expected mysqlfs_fs_op_count to be registered")
}

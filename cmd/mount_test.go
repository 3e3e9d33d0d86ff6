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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vGimly/mysqlfs/cfg"
)

func TestGetFuseMountConfig_NamesAndBigWrites(t *testing.T) {
	c := &cfg.Config{Mount: cfg.MountConfig{BigWrites: true}}

	mountCfg := getFuseMountConfig(c)

	assert.Equal(t, "mysqlfs", mountCfg.FSName)
	assert.Equal(t, "mysqlfs", mountCfg.Subtype)
	assert.True(t, mountCfg.EnableParallelDirOps)
	assert.True(t, mountCfg.EnableReaddirplus)
}

func TestGetFuseMountConfig_AllowOtherAndDefaultPermissionsSetOptions(t *testing.T) {
	c := &cfg.Config{Mount: cfg.MountConfig{AllowOther: true, DefaultPermissions: true}}

	mountCfg := getFuseMountConfig(c)

	_, hasAllowOther := mountCfg.Options["allow_other"]
	_, hasDefaultPermissions := mountCfg.Options["default_permissions"]
	assert.True(t, hasAllowOther)
	assert.True(t, hasDefaultPermissions)
}

func TestGetFuseMountConfig_NoOptionsByDefault(t *testing.T) {
	c := &cfg.Config{}

	mountCfg := getFuseMountConfig(c)

	assert.Empty(t, mountCfg.Options)
}

func TestGetFuseMountConfig_LoggersDisabledWhenSeverityIsOff(t *testing.T) {
	c := &cfg.Config{Logging: cfg.LoggingConfig{Severity: cfg.OffLogSeverity}}

	mountCfg := getFuseMountConfig(c)

	assert.Nil(t, mountCfg.ErrorLogger)
	assert.Nil(t, mountCfg.DebugLogger)
}

func TestGetFuseMountConfig_DebugLoggerDisabledAtWarningSeverity(t *testing.T) {
	c := &cfg.Config{Logging: cfg.LoggingConfig{Severity: cfg.WarningLogSeverity}}

	mountCfg := getFuseMountConfig(c)

	assert.NotNil(t, mountCfg.ErrorLogger)
	assert.Nil(t, mountCfg.DebugLogger)
}

func TestGetFuseMountConfig_ErrorLoggerSetAtErrorSeverityOrBelow(t *testing.T) {
	c := &cfg.Config{Logging: cfg.LoggingConfig{Severity: cfg.ErrorLogSeverity}}

	mountCfg := getFuseMountConfig(c)

	assert.NotNil(t, mountCfg.ErrorLogger)
	assert.Nil(t, mountCfg.DebugLogger)
}

func TestGetFuseMountConfig_DebugLoggerOnlyAtTraceSeverity(t *testing.T) {
	c := &cfg.Config{Logging: cfg.LoggingConfig{Severity: cfg.TraceLogSeverity}}

	mountCfg := getFuseMountConfig(c)

	assert.NotNil(t, mountCfg.ErrorLogger)
	assert.NotNil(t, mountCfg.DebugLogger)
}

func TestStartMetricsServer_DisabledByDefaultReturnsNoopAndSafeStop(t *testing.T) {
	metrics, stop := startMetricsServer(cfg.MetricsConfig{Port: 0})

	assert.NotNil(t, metrics)
	assert.NotPanics(t, stop)
}

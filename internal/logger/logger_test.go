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

package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vGimly/mysqlfs/cfg"
)

func redirectLogsToGivenBuffer(buf *bytes.Buffer, format string, level cfg.LogSeverity) {
	defaultLoggerFactory = &loggerFactory{level: level, format: format}
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(buf, toSlogLevel(level), ""))
}

func TestTextFormat_OnlyAtOrAboveConfiguredLevelEmits(t *testing.T) {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, "text", cfg.WarningLogSeverity)

	Infof("should not appear")
	assert.Empty(t, buf.String())

	Warnf("should appear")
	assert.Regexp(t, regexp.MustCompile(`severity=WARNING`), buf.String())
}

func TestJSONFormat_IncludesSeverityAndMessage(t *testing.T) {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, "json", cfg.TraceLogSeverity)

	Tracef("hello %s", "world")

	out := buf.String()
	assert.Contains(t, out, `"severity":"TRACE"`)
	assert.Contains(t, out, `"message":"hello world"`)
}

func TestLevelOff_SuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, "text", cfg.OffLogSeverity)

	Errorf("should not appear either")

	assert.Empty(t, buf.String())
}

func TestToSlogLevel_MapsEverySeverity(t *testing.T) {
	assert.Equal(t, LevelTrace, toSlogLevel(cfg.TraceLogSeverity))
	assert.Equal(t, LevelDebug, toSlogLevel(cfg.DebugLogSeverity))
	assert.Equal(t, LevelInfo, toSlogLevel(cfg.InfoLogSeverity))
	assert.Equal(t, LevelWarn, toSlogLevel(cfg.WarningLogSeverity))
	assert.Equal(t, LevelError, toSlogLevel(cfg.ErrorLogSeverity))
	assert.Equal(t, LevelOff, toSlogLevel(cfg.OffLogSeverity))
}

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

// Package logger wraps log/slog with the severity levels, text/json
// format switch, and lumberjack-backed file rotation mysqlfs' ambient
// logging stack uses throughout the pool, query layer, and FS Adapter.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vGimly/mysqlfs/cfg"
)

// Severity levels below slog's built-in Debug/Info/Warn/Error, matching
// the five-plus-OFF ranking in cfg.LogSeverity.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	// LevelOff is set high enough that no handler emits a record at it.
	LevelOff = slog.Level(16)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

type loggerFactory struct {
	file            *lumberjack.Logger
	level           cfg.LogSeverity
	format          string
	logRotateConfig cfg.LogRotateLoggingConfig
	sysWriter       io.Writer
}

var (
	defaultLoggerFactory = &loggerFactory{
		level:  cfg.InfoLogSeverity,
		format: "text",
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, toSlogLevel(cfg.InfoLogSeverity), ""))
)

func toSlogLevel(sev cfg.LogSeverity) slog.Level {
	switch sev {
	case cfg.TraceLogSeverity:
		return LevelTrace
	case cfg.DebugLogSeverity:
		return LevelDebug
	case cfg.WarningLogSeverity:
		return LevelWarn
	case cfg.ErrorLogSeverity:
		return LevelError
	case cfg.OffLogSeverity:
		return LevelOff
	default:
		return LevelInfo
	}
}

func (f *loggerFactory) createJSONOrTextHandler(w io.Writer, level slog.Level, prefix string) slog.Handler {
	replace := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey {
			level, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			name, ok := levelNames[level]
			if !ok {
				name = level.String()
			}
			a.Key = "severity"
			a.Value = slog.StringValue(name)
		}
		if a.Key == slog.MessageKey && prefix != "" {
			a.Value = slog.StringValue(prefix + a.Value.String())
		}
		if a.Key == slog.MessageKey {
			a.Key = "message"
		}
		return a
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replace}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return &textHandler{inner: slog.NewTextHandler(w, opts)}
}

// textHandler wraps slog's text handler to match the legacy
// `time="..." severity=LEVEL message="..."` record shape instead of
// slog's default `key=value` ordering of arbitrary fields.
type textHandler struct {
	inner *slog.TextHandler
}

func (h *textHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *textHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &textHandler{inner: h.inner.WithAttrs(attrs).(*slog.TextHandler)}
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	return &textHandler{inner: h.inner.WithGroup(name).(*slog.TextHandler)}
}

// InitLogFile points the default logger at cfg's configured logfile (or
// stderr, if unset), applying its severity, format, and rotation policy.
func InitLogFile(c cfg.LoggingConfig) error {
	defaultLoggerFactory.level = c.Severity
	defaultLoggerFactory.format = c.Format
	defaultLoggerFactory.logRotateConfig = c.LogRotate

	var w io.Writer = os.Stderr
	if c.Logfile != "" {
		lj := &lumberjack.Logger{
			Filename:   string(c.Logfile),
			MaxSize:    c.LogRotate.MaxFileSizeMb,
			MaxBackups: c.LogRotate.BackupFileCount,
			Compress:   c.LogRotate.Compress,
		}
		defaultLoggerFactory.file = lj
		w = lj
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(w, toSlogLevel(c.Severity), ""))
	return nil
}

// SetLogFormat switches the default logger between "text" and "json"
// without touching its destination or level. Any format other than "json",
// including an empty one, selects text.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format

	var w io.Writer = os.Stderr
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(w, toSlogLevel(defaultLoggerFactory.level), ""))
}

func logf(level slog.Level, format string, args ...any) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Tracef logs at TRACE severity.
func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }

// Debugf logs at DEBUG severity.
func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }

// Infof logs at INFO severity.
func Infof(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warnf logs at WARNING severity.
func Warnf(format string, args ...any) { logf(LevelWarn, format, args...) }

// Errorf logs at ERROR severity.
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }

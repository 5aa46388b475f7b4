// Copyright 2026 The Authors.
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

// Package logger is the kernel-wide structured logger. It wraps log/slog
// with a severity level below slog's own (TRACE) and a pluggable text/json
// handler, and rotates its output file through lumberjack when configured
// to log to disk rather than stderr.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity mirrors the kernel's own notion of log level, one step finer
// than slog's built-in levels so TRACE-level scheduler/VM chatter can be
// filtered independently of DEBUG.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config controls where and how the kernel logger writes.
type Config struct {
	// Format is "text" or "json".
	Format string
	// Severity is one of "trace", "debug", "info", "warning", "error".
	Severity string
	// FilePath, if non-empty, routes output through a rotating file
	// instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

type factory struct {
	format string
	mu     sync.Mutex
}

func (f *factory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "time"
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006/01/02 15:04:05.000000"))
				}
			case slog.LevelKey:
				a.Key = "severity"
				a.Value = slog.StringValue(severityName(a.Value.Any().(slog.Level)))
			case slog.MessageKey:
				if prefix != "" {
					a.Value = slog.StringValue(prefix + a.Value.String())
				}
			}
			return a
		},
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return &textHandler{slog.NewTextHandler(w, opts)}
}

// textHandler renders records as `time="..." severity=X msg="..."`,
// matching the ambient text format the rest of the kernel's log scraping
// expects.
type textHandler struct {
	*slog.TextHandler
}

func severityName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarn:
		return "INFO"
	case l < LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

var (
	defaultLoggerFactory = &factory{format: "text"}
	programLevel         = new(slog.LevelVar)
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevel, ""))
	mu                    sync.RWMutex
)

// Init (re)configures the package-level default logger. Call once at boot
// from cmd/tinykern after cfg is loaded.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxOr(cfg.MaxSizeMB, 512),
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
	}

	defaultLoggerFactory.format = cfg.Format
	setLoggingLevel(cfg.Severity, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
	return nil
}

func maxOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func setLoggingLevel(level string, v *slog.LevelVar) {
	switch level {
	case "trace":
		v.Set(LevelTrace)
	case "debug":
		v.Set(LevelDebug)
	case "info":
		v.Set(LevelInfo)
	case "warning":
		v.Set(LevelWarn)
	case "error":
		v.Set(LevelError)
	default:
		v.Set(LevelInfo)
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Tracef(format string, args ...any) { get().Log(context.Background(), LevelTrace, fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { get().Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { get().Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { get().Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { get().Error(fmt.Sprintf(format, args...)) }

// AsyncLogger decouples writers from the (potentially slow, rotating)
// underlying file by buffering writes on a channel and draining them from
// a single background goroutine. It exists for the kernel's tick handler
// and syscall dispatch paths, which must never block on log I/O.
type AsyncLogger struct {
	w       io.Writer
	ch      chan []byte
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// NewAsyncLogger starts a background writer draining into w. bufferSize
// bounds the number of in-flight messages; once full, further writes are
// dropped with a warning to stderr rather than blocking the caller.
func NewAsyncLogger(w io.Writer, bufferSize int) *AsyncLogger {
	l := &AsyncLogger{
		w:    w,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go l.drain()
	return l
}

func (l *AsyncLogger) drain() {
	defer close(l.done)
	for b := range l.ch {
		l.w.Write(b)
	}
}

// Write implements io.Writer. It copies p, since the caller may reuse its
// buffer as soon as Write returns.
func (l *AsyncLogger) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	select {
	case l.ch <- b:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close stops accepting writes and blocks until the drain goroutine has
// flushed everything already queued.
func (l *AsyncLogger) Close() error {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.ch)
	<-l.done
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

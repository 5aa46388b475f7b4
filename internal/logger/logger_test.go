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

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// withCapturedDefault reconfigures the package-level default logger to
// write into buf at the given format/severity for the duration of fn, then
// restores whatever was configured before. Init has no direct "write to
// this buffer" knob, so the test pokes the same unexported state Init
// itself mutates.
func withCapturedDefault(t *testing.T, format, severity string, fn func(buf *bytes.Buffer)) {
	t.Helper()
	var buf bytes.Buffer

	mu.Lock()
	savedFormat := defaultLoggerFactory.format
	savedLogger := defaultLogger
	level := new(slog.LevelVar)
	setLoggingLevel(severity, level)
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(&buf, level, ""))
	mu.Unlock()

	defer func() {
		mu.Lock()
		defaultLoggerFactory.format = savedFormat
		defaultLogger = savedLogger
		mu.Unlock()
	}()

	fn(&buf)
}

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (s *LoggerTestSuite) TestTextFormatWritesSeverityAndMessage() {
	withCapturedDefault(s.T(), "text", "info", func(buf *bytes.Buffer) {
		Infof("boot: %s", "pid 1 created")
		out := buf.String()
		assert.Contains(s.T(), out, "severity=INFO")
		assert.Contains(s.T(), out, "pid 1 created")
	})
}

func (s *LoggerTestSuite) TestJSONFormatIsValidAndCarriesSeverity() {
	withCapturedDefault(s.T(), "json", "info", func(buf *bytes.Buffer) {
		Warnf("securelevel raised to %d", 1)

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			s.T().Fatalf("log line is not valid JSON: %v (%q)", err, buf.String())
		}
		assert.Equal(s.T(), "WARNING", rec["severity"])
		assert.Contains(s.T(), rec["msg"], "securelevel raised to 1")
	})
}

// TestSeverityFiltering walks every named severity through
// setLoggingLevel (the mapping Init uses) and checks both ends of the
// range: the trace line is kept only at "trace", and the error line is
// kept at every level.
func (s *LoggerTestSuite) TestSeverityFiltering() {
	cases := []struct {
		configured string
		minKept    slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
	}

	for _, tc := range cases {
		withCapturedDefault(s.T(), "text", tc.configured, func(buf *bytes.Buffer) {
			Tracef("trace line")
			Debugf("debug line")
			Infof("info line")
			Warnf("warning line")
			Errorf("error line")

			out := buf.String()
			if tc.minKept <= LevelTrace {
				assert.Contains(s.T(), out, "trace line", "configured=%s", tc.configured)
			} else {
				assert.NotContains(s.T(), out, "trace line", "configured=%s", tc.configured)
			}
			if tc.minKept <= LevelError {
				assert.Contains(s.T(), out, "error line", "configured=%s", tc.configured)
			}
		})
	}
}

func (s *LoggerTestSuite) TestUnrecognizedSeverityDefaultsToInfo() {
	withCapturedDefault(s.T(), "text", "not-a-real-level", func(buf *bytes.Buffer) {
		Debugf("should be dropped")
		Infof("should be kept")
		out := buf.String()
		assert.NotContains(s.T(), out, "should be dropped")
		assert.Contains(s.T(), out, "should be kept")
	})
}

func (s *LoggerTestSuite) TestInitIsConcurrencySafeWithLogCalls() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			Infof("concurrent log %d", i)
		}
	}()
	for i := 0; i < 50; i++ {
		_ = Init(Config{Format: "text", Severity: "info"})
	}
	<-done
}

func TestAsyncLoggerDrainsToUnderlyingWriter(t *testing.T) {
	var buf bytes.Buffer
	al := NewAsyncLogger(&buf, 16)
	if _, err := al.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := al.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected drained output to contain %q, got %q", "hello", buf.String())
	}
}

func TestAsyncLoggerDropsWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	w := blockingWriter{release: block}
	al := NewAsyncLogger(w, 1)
	defer func() {
		close(block)
		al.Close()
	}()

	// The drain goroutine picks up the first write and blocks on it;
	// subsequent writes queue until the buffer (size 1) is full, then get
	// dropped. Write itself never blocks the caller either way.
	for i := 0; i < 8; i++ {
		if _, err := al.Write([]byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
}

type blockingWriter struct {
	release chan struct{}
}

func (w blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/exp/slog"
)

// TestLogger writes log lines to a test's log.
type TestLogger struct {
	Test testing.TB
}

var _ io.Writer = (*TestLogger)(nil)

func (l *TestLogger) Write(b []byte) (int, error) {
	s := string(b)
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
	}
	l.Test.Log(s)
	return len(b), nil
}

// NewTestLogger returns a logger that writes to the test's log. The levels
// are read from REPOTOKEN_TEST_LOG and default to error.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	rules, err := ParseRules(os.Getenv("REPOTOKEN_TEST_LOG"))
	if err != nil {
		t.Fatal(err)
	}
	logger, err := New(Config{Rules: rules}, &TestLogger{Test: t})
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

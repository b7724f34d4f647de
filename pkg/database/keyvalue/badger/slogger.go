// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slog"
)

// slogger forwards Badger's log output to a structured logger.
type slogger struct {
	logger *slog.Logger
}

func (l slogger) log(level slog.Level, format string, args ...interface{}) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	s := fmt.Sprintf(format, args...)
	l.logger.Log(context.Background(), level, strings.TrimRight(s, "\n"))
}

func (l slogger) Errorf(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

func (l slogger) Warningf(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l slogger) Infof(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l slogger) Debugf(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

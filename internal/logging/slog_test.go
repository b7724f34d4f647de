// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gitlab.com/defios/repotoken/pkg/errors"
	"golang.org/x/exp/slog"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("error; executor=debug ;database=warn")
	require.NoError(t, err)
	require.Equal(t, []Rule{
		{Level: slog.LevelError},
		{Module: "executor", Level: slog.LevelDebug},
		{Module: "database", Level: slog.LevelWarn},
	}, rules)

	rules, err = ParseRules("")
	require.NoError(t, err)
	require.Empty(t, rules)

	_, err = ParseRules("executor=loud")
	require.Error(t, err)
	require.Equal(t, errors.BadRequest, errors.Code(err))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := NewHandler(Config{Format: "xml"}, new(bytes.Buffer))
	require.Error(t, err)
	require.Equal(t, errors.BadRequest, errors.Code(err))
}

func TestPlainLogging(t *testing.T) {
	buf := new(bytes.Buffer)
	handler, err := NewHandler(Config{Rules: []Rule{{Level: slog.LevelDebug}}}, buf)
	require.NoError(t, err)
	logger := slog.New(stripTime{handler})

	logger.Info("Hello world")
	require.Equal(t, testTime.Format(time.RFC3339)+" INFO Hello world\n", buf.String())
}

func TestConsoleWriterColor(t *testing.T) {
	// Files that are not terminals get no escape codes
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.True(t, ConsoleWriter(w).(*zerolog.ConsoleWriter).NoColor)
	require.True(t, ConsoleWriter(new(bytes.Buffer)).(*zerolog.ConsoleWriter).NoColor)

	buf := new(bytes.Buffer)
	logger, err := New(Config{Rules: []Rule{{Level: slog.LevelInfo}}}, buf)
	require.NoError(t, err)
	logger.Error("Failed", "error", "boom")
	require.NotContains(t, buf.String(), "\x1b[")
}

func TestJSONLogging(t *testing.T) {
	buf := new(bytes.Buffer)
	handler, err := NewHandler(Config{Format: "json", Rules: []Rule{{Level: slog.LevelDebug}}}, buf)
	require.NoError(t, err)
	logger := slog.New(stripTime{handler})

	logger.Info("Hello world")
	require.Equal(t, `{`+
		`"time":"`+testTime.Format(time.RFC3339)+`",`+
		`"level":"INFO",`+
		`"message":"Hello world"`+
		`}`+"\n", buf.String())
}

func TestModuleLevels(t *testing.T) {
	buf := new(bytes.Buffer)
	rules, err := ParseRules("error;executor=debug")
	require.NoError(t, err)
	logger, err := New(Config{Format: "json", Rules: rules}, buf)
	require.NoError(t, err)

	// Module set on the logger
	logger.With("module", "executor").Debug("Shown")
	logger.With("module", "database").Info("Hidden")
	logger.Info("Hidden")

	// Module set on the record
	logger.Debug("Also shown", "module", "executor")

	// Module set on the context
	ctx := With(context.Background(), "module", "executor")
	logger.InfoCtx(ctx, "Shown via context")

	out := buf.String()
	require.Contains(t, out, `"message":"Shown"`)
	require.Contains(t, out, `"message":"Also shown"`)
	require.Contains(t, out, `"message":"Shown via context"`)
	require.NotContains(t, out, "Hidden")
}

func TestLoggingCtxAttrs(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, err := New(Config{Format: "json", Rules: []Rule{{Level: slog.LevelDebug}}}, buf)
	require.NoError(t, err)

	ctx := With(context.Background(), "foo", "bar")
	ctx = With(ctx, slog.Int("n", 1))
	logger.InfoCtx(ctx, "Hello world")
	require.Contains(t, buf.String(), `"foo":"bar"`)
	require.Contains(t, buf.String(), `"n":1`)
}

func TestWithAttrsDoesNotAlias(t *testing.T) {
	base := With(context.Background(), "a", 1)
	x := With(base, "b", 2)
	y := With(base, "c", 3)
	require.Len(t, Attrs(base), 1)
	require.Equal(t, "b", Attrs(x)[1].Key)
	require.Equal(t, "c", Attrs(y)[1].Key)
}

type stripTime struct {
	slog.Handler
}

var testTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local)

func (s stripTime) Handle(ctx context.Context, r slog.Record) error {
	r.Time = testTime
	return s.Handler.Handle(ctx, r)
}

func (s stripTime) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stripTime{s.Handler.WithAttrs(attrs)}
}

func (s stripTime) WithGroup(name string) slog.Handler {
	return stripTime{s.Handler.WithGroup(name)}
}

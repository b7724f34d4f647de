// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package logging configures structured logging with per-module levels.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gitlab.com/defios/repotoken/pkg/errors"
	"golang.org/x/exp/slog"
)

// Rule sets the level of a module. A rule without a module sets the default
// level.
type Rule struct {
	Module string
	Level  slog.Level
}

// ParseRules parses a string such as "error;executor=info".
func ParseRules(s string) ([]Rule, error) {
	var rules []Rule
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var r Rule
		level := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			r.Module, level = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		err := r.Level.UnmarshalText([]byte(level))
		if err != nil {
			return nil, errors.BadRequest.WithFormat("invalid log level %q: %w", part, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Config is the configuration of a log handler.
type Config struct {
	// Format is text (the default) or json.
	Format string
	Rules  []Rule
}

// NewHandler returns a handler that writes to w and drops records below
// the level of the module that logged them.
func NewHandler(cfg Config, w io.Writer) (slog.Handler, error) {
	defaultLevel := slog.LevelError
	modules := map[string]slog.Level{}
	for _, r := range cfg.Rules {
		if r.Module == "" {
			defaultLevel = r.Level
		} else {
			modules[strings.ToLower(r.Module)] = r.Level
		}
	}
	lowestLevel := defaultLevel
	for _, l := range modules {
		if l < lowestLevel {
			lowestLevel = l
		}
	}

	opts := &slog.HandlerOptions{
		Level: lowestLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.MessageKey || len(groups) > 0 {
				return a
			}
			if a.Value.Kind() == slog.KindString {
				return slog.Any(zerolog.MessageFieldName, a.Value)
			}
			return slog.String(zerolog.MessageFieldName, fmt.Sprint(a.Value.Any()))
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text", "plain":
		// Use zerolog's console writer to write pretty logs
		h = slog.NewJSONHandler(ConsoleWriter(w), opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, errors.BadRequest.WithFormat("log format %q is not supported", cfg.Format)
	}

	return &logHandler{
		handler:      h,
		level:        defaultLevel,
		defaultLevel: defaultLevel,
		lowestLevel:  lowestLevel,
		modules:      modules,
	}, nil
}

// New returns a logger for the configuration.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	h, err := NewHandler(cfg, w)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// ConsoleWriter renders JSON log lines in a human-readable form. Output is
// colored only when w is a terminal.
func ConsoleWriter(w io.Writer) io.Writer {
	return &zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			if ll, ok := i.(string); ok {
				return strings.ToUpper(ll)
			}
			return "????"
		},
		FormatMessage: func(i interface{}) string {
			s, ok := i.(string)
			if ok {
				return s
			}
			return fmt.Sprint(i)
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type logHandler struct {
	handler      slog.Handler
	level        slog.Level
	defaultLevel slog.Level
	lowestLevel  slog.Level
	modules      map[string]slog.Level
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	i := *h
	i.handler = h.handler.WithAttrs(attrs)
	i.level = h.levelFor(h.level, attrs)
	return &i
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	i := *h
	i.handler = h.handler.WithGroup(name)
	return &i
}

// Enabled only checks the lowest level since the record may set the module.
func (h *logHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.lowestLevel {
		return false
	}
	return h.handler.Enabled(ctx, level)
}

func (h *logHandler) Handle(ctx context.Context, record slog.Record) error {
	ctxAttrs := Attrs(ctx)
	level := h.levelFor(h.level, ctxAttrs)

	var recAttrs []slog.Attr
	record.Attrs(func(a slog.Attr) bool {
		recAttrs = append(recAttrs, a)
		return true
	})
	if record.Level < h.levelFor(level, recAttrs) {
		return nil
	}

	if len(ctxAttrs) > 0 {
		record = record.Clone()
		record.AddAttrs(ctxAttrs...)
	}
	return h.handler.Handle(ctx, record)
}

// levelFor returns the level of the last module attribute, or level if
// there is none.
func (h *logHandler) levelFor(level slog.Level, attrs []slog.Attr) slog.Level {
	for _, a := range attrs {
		if a.Key != "module" {
			continue
		}
		if l, ok := h.modules[strings.ToLower(a.Value.String())]; ok {
			level = l
		} else {
			level = h.defaultLevel
		}
	}
	return level
}

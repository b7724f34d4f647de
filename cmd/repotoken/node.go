// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/defios/repotoken/config"
	"gitlab.com/defios/repotoken/internal/core/execute"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/internal/logging"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue/badger"
	"golang.org/x/exp/slog"
)

// node is a ledger opened from a working directory.
type node struct {
	config   *config.Config
	logger   *slog.Logger
	db       *database.Database
	executor *execute.Executor
}

func openNode(dir string, reg prometheus.Registerer) (*node, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	rules, err := cfg.LogRules()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Format: cfg.Logging.Format, Rules: rules}, os.Stderr)
	if err != nil {
		return nil, err
	}

	program, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Storage.Type, config.MakeAbsolute(dir, cfg.Storage.Path), logger, badger.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	x, err := execute.New(execute.Options{
		ProgramID:  program,
		Database:   db,
		Logger:     logger,
		RequireCID: cfg.Metadata.RequireCID,
		Registerer: reg,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &node{config: cfg, logger: logger, db: db, executor: x}, nil
}

func (n *node) Close() error {
	return n.db.Close()
}

// withNode opens the node in the working directory and closes it when fn
// returns.
func withNode(fn func(n *node) error) error {
	n, err := openNode(flagMain.WorkDir, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer n.Close()
	return fn(n)
}

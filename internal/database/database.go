// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package database is the ledger: a typed view of accounts over a key-value
// store, with batches that commit or discard every change together.
package database

import (
	"io"

	"gitlab.com/defios/repotoken/pkg/database/keyvalue"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue/badger"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue/memory"
	"gitlab.com/defios/repotoken/pkg/errors"
	"golang.org/x/exp/slog"
)

// Storage types.
const (
	MemoryStorage = "memory"
	BadgerStorage = "badger"
)

// Database is the ledger.
type Database struct {
	store  keyvalue.Beginner
	logger *slog.Logger
}

// New creates a new database using the given key-value store.
func New(store keyvalue.Beginner, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{store: store, logger: logger.With("module", "database")}
}

func OpenInMemory(logger *slog.Logger) *Database {
	return New(memory.New(nil), logger)
}

// OpenBadger opens a ledger stored in a Badger database. The store logs
// through logger unless the options override it.
func OpenBadger(filepath string, logger *slog.Logger, opts ...badger.Option) (*Database, error) {
	if logger != nil {
		opts = append([]badger.Option{badger.WithLogger(logger)}, opts...)
	}
	store, err := badger.New(filepath, opts...)
	if err != nil {
		return nil, err
	}
	return New(store, logger), nil
}

// Open opens a ledger with the given storage type. The Badger options are
// ignored for memory storage.
func Open(storageType, path string, logger *slog.Logger, opts ...badger.Option) (*Database, error) {
	switch storageType {
	case MemoryStorage:
		return OpenInMemory(logger), nil
	case BadgerStorage:
		return OpenBadger(path, logger, opts...)
	default:
		return nil, errors.BadRequest.WithFormat("unknown storage type %q", storageType)
	}
}

// Close closes the database and the key-value store.
func (d *Database) Close() error {
	if c, ok := d.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Begin starts a new batch.
func (d *Database) Begin(writable bool) *Batch {
	return newBatch(d.store.Begin(nil, writable), writable, d.logger)
}

// View runs the function with a read-only batch.
func (d *Database) View(fn func(batch *Batch) error) error {
	batch := d.Begin(false)
	defer batch.Discard()
	return fn(batch)
}

// Update runs the function with a writable batch and commits if the
// function succeeds.
func (d *Database) Update(fn func(batch *Batch) error) error {
	batch := d.Begin(true)
	defer batch.Discard()
	err := fn(batch)
	if err != nil {
		return err
	}
	return batch.Commit()
}

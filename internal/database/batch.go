// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package database

import (
	"sort"

	"gitlab.com/defios/repotoken/pkg/database"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
	"golang.org/x/exp/slog"
)

// Batch batches ledger writes. Nothing a batch writes is visible outside it
// until it is committed.
type Batch struct {
	store    keyvalue.ChangeSet
	writable bool
	parent   *Batch
	logger   *slog.Logger
	dirty    map[protocol.PublicKey]bool
}

func newBatch(store keyvalue.ChangeSet, writable bool, logger *slog.Logger) *Batch {
	return &Batch{
		store:    store,
		writable: writable,
		logger:   logger,
		dirty:    map[protocol.PublicKey]bool{},
	}
}

// Begin starts a nested batch. Committing it writes into this batch.
func (b *Batch) Begin(writable bool) *Batch {
	if writable && !b.writable {
		b.logger.Info("Attempted to create a writable batch from a read-only batch")
	}
	c := newBatch(b.store.Begin(nil, b.writable && writable), b.writable && writable, b.logger)
	c.parent = b
	return c
}

// View runs the function with a read-only nested batch.
func (b *Batch) View(fn func(batch *Batch) error) error {
	batch := b.Begin(false)
	defer batch.Discard()
	return fn(batch)
}

// Update runs the function with a writable nested batch and commits if the
// function succeeds.
func (b *Batch) Update(fn func(batch *Batch) error) error {
	batch := b.Begin(true)
	defer batch.Discard()
	err := fn(batch)
	if err != nil {
		return err
	}
	return batch.Commit()
}

// Commit writes every change to the parent batch or to the store.
func (b *Batch) Commit() error {
	if !b.writable {
		return errors.NotAllowed.With("batch is read-only")
	}
	err := b.store.Commit()
	if err != nil {
		return errors.UnknownError.Wrap(err)
	}
	if b.parent != nil {
		for k := range b.dirty {
			b.parent.dirty[k] = true
		}
	}
	return nil
}

// Discard drops every change. Discard is safe to call after Commit.
func (b *Batch) Discard() {
	b.store.Discard()
}

// Modified returns the accounts written by this batch and by nested batches
// committed into it, sorted.
func (b *Batch) Modified() []protocol.PublicKey {
	keys := make([]protocol.PublicKey, 0, len(b.dirty))
	for k := range b.dirty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i].Bytes()) < string(keys[j].Bytes())
	})
	return keys
}

// Account returns the ledger account at an address.
func (b *Batch) Account(addr protocol.PublicKey) *Account {
	return &Account{batch: b, address: addr}
}

func accountKey(addr protocol.PublicKey) *database.Key {
	return database.NewKey("Account", addr)
}

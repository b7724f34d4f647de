// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package memory

import (
	"sync"

	"gitlab.com/defios/repotoken/pkg/database"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue"
	"gitlab.com/defios/repotoken/pkg/errors"
)

type GetFunc func(*database.Key) ([]byte, error)
type CommitFunc func(map[database.KeyHash]Entry) error
type DiscardFunc func()

// ChangeSet buffers writes in memory until Commit. Reads see pending writes
// before falling through to get. A change set with a nil commit function is
// read-only.
type ChangeSet struct {
	mu      sync.RWMutex
	prefix  *database.Key
	entries map[database.KeyHash]Entry
	get     GetFunc
	commit  CommitFunc
	discard DiscardFunc
	done    bool
}

var _ keyvalue.ChangeSet = (*ChangeSet)(nil)

func NewChangeSet(prefix *database.Key, get GetFunc, commit CommitFunc, discard DiscardFunc) *ChangeSet {
	return &ChangeSet{
		prefix:  prefix,
		entries: map[database.KeyHash]Entry{},
		get:     get,
		commit:  commit,
		discard: discard,
	}
}

// Begin begins a nested change set. Committing it writes into this change
// set, not into the underlying store.
func (c *ChangeSet) Begin(prefix *database.Key, writable bool) keyvalue.ChangeSet {
	var commit CommitFunc
	if writable {
		commit = c.putAll
	}
	return NewChangeSet(prefix, c.Get, commit, nil)
}

func (c *ChangeSet) Get(key *database.Key) ([]byte, error) {
	key = c.prefix.AppendKey(key)

	c.mu.RLock()
	if c.done {
		c.mu.RUnlock()
		return nil, errors.NotReady.With("change set has been committed or discarded")
	}
	e, ok := c.entries[key.Hash()]
	c.mu.RUnlock()

	switch {
	case !ok:
		if c.get == nil {
			return nil, errors.NotFound.WithFormat("%v not found", key)
		}
		return c.get(key)
	case e.Delete:
		return nil, errors.NotFound.WithFormat("%v not found", key)
	default:
		return e.Value, nil
	}
}

func (c *ChangeSet) Put(key *database.Key, value []byte) error {
	return c.write(key, value, false)
}

func (c *ChangeSet) Delete(key *database.Key) error {
	return c.write(key, nil, true)
}

func (c *ChangeSet) write(key *database.Key, value []byte, delete bool) error {
	if c.commit == nil {
		return errors.NotAllowed.WithFormat("cannot write %v: change set is read-only", key)
	}

	key = c.prefix.AppendKey(key)
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return errors.NotReady.With("change set has been committed or discarded")
	}
	c.entries[key.Hash()] = Entry{Key: key, Value: v, Delete: delete}
	return nil
}

func (c *ChangeSet) putAll(entries map[database.KeyHash]Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return errors.NotReady.With("change set has been committed or discarded")
	}
	for _, e := range entries {
		key := c.prefix.AppendKey(e.Key)
		c.entries[key.Hash()] = Entry{Key: key, Value: e.Value, Delete: e.Delete}
	}
	return nil
}

// Commit publishes every pending write at once and closes the change set.
func (c *ChangeSet) Commit() error {
	if c.commit == nil {
		return errors.NotAllowed.With("change set is read-only")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return errors.NotReady.With("change set has been committed or discarded")
	}

	err := c.commit(c.entries)
	if err != nil {
		return errors.UnknownError.Wrap(err)
	}
	c.close()
	return nil
}

// Discard drops every pending write. Discard is safe to call after Commit.
func (c *ChangeSet) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	c.close()
}

func (c *ChangeSet) close() {
	c.done = true
	c.entries = nil
	if c.discard != nil {
		c.discard()
	}
}

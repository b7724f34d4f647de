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

// Entry is a pending or stored key-value pair.
type Entry struct {
	Key    *database.Key
	Value  []byte
	Delete bool
}

type Database struct {
	mu      sync.RWMutex
	entries map[database.KeyHash]Entry
	prefix  *database.Key
}

var _ keyvalue.Beginner = (*Database)(nil)

func New(prefix *database.Key) *Database {
	return &Database{prefix: prefix}
}

// Begin begins a change set.
func (d *Database) Begin(prefix *database.Key, writable bool) keyvalue.ChangeSet {
	var commit CommitFunc
	if writable {
		commit = d.put
	}
	return NewChangeSet(prefix, d.get, commit, nil)
}

// Export exports the database as a set of entries. Behavior is undefined if the
// database was created with a prefix.
func (d *Database) Export() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entries := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		entries = append(entries, e)
	}
	return entries
}

// Import imports a set of entries into the database. Behavior is undefined if
// the database was created with a prefix.
func (d *Database) Import(entries []Entry) error {
	m := make(map[database.KeyHash]Entry, len(entries))
	for _, e := range entries {
		m[e.Key.Hash()] = e
	}
	return d.put(m)
}

func (d *Database) get(key *database.Key) ([]byte, error) {
	key = d.prefix.AppendKey(key)

	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.entries[key.Hash()]
	if ok {
		return entry.Value, nil
	}

	return nil, errors.NotFound.WithFormat("%v not found", key)
}

func (d *Database) put(entries map[database.KeyHash]Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entries == nil {
		d.entries = make(map[database.KeyHash]Entry, len(entries))
	}

	for _, e := range entries {
		key := d.prefix.AppendKey(e.Key)
		if e.Delete {
			delete(d.entries, key.Hash())
		} else {
			d.entries[key.Hash()] = Entry{Key: key, Value: e.Value}
		}
	}
	return nil
}

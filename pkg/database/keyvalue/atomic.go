// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package keyvalue

import "gitlab.com/defios/repotoken/pkg/database"

// Store reads and writes raw values.
type Store interface {
	// Get loads a value. Get returns a NotFound error if the key does not
	// exist.
	Get(*database.Key) ([]byte, error)

	// Put stores a value.
	Put(*database.Key, []byte) error

	// Delete removes a value.
	Delete(*database.Key) error
}

// ChangeSet is a key-value change set. Writes are only visible outside the
// change set after Commit.
type ChangeSet interface {
	Store
	Beginner

	// Commit commits pending changes.
	Commit() error

	// Discard discards pending changes.
	Discard()
}

// A Beginner can begin key-value change sets.
type Beginner interface {
	// Begin begins a transaction or sub-transaction with a prefix applied to keys.
	Begin(prefix *database.Key, writable bool) ChangeSet
}

// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package kvtest is a conformance suite for [keyvalue.Beginner]
// implementations.
package kvtest

import (
	"crypto/rand"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/defios/repotoken/pkg/database"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue"
	"gitlab.com/defios/repotoken/pkg/errors"
)

type Opener = func() (keyvalue.Beginner, error)

type closableDb struct {
	keyvalue.Beginner
	t      testing.TB
	closed bool
}

func (c *closableDb) Close() {
	if c.closed {
		return
	}
	c.closed = true

	if d, ok := c.Beginner.(io.Closer); ok {
		require.NoError(c.t, d.Close())
	}
}

func openDb(t testing.TB, open Opener) *closableDb {
	db, err := open()
	require.NoError(t, err)
	c := &closableDb{db, t, false}
	t.Cleanup(c.Close)
	return c
}

// TestSuite runs every test in the suite.
func TestSuite(t *testing.T, open Opener) {
	t.Run("Database", func(t *testing.T) { TestDatabase(t, open) })
	t.Run("SubBatch", func(t *testing.T) { TestSubBatch(t, open) })
	t.Run("Prefix", func(t *testing.T) { TestPrefix(t, open) })
	t.Run("Delete", func(t *testing.T) { TestDelete(t, open) })
	t.Run("Discard", func(t *testing.T) { TestDiscard(t, open) })
}

func TestDatabase(t *testing.T, open Opener) {
	const N = 1000

	db := openDb(t, open)

	batch := db.Begin(nil, true)
	defer batch.Discard()

	// Read when nothing exists
	_, err := batch.Get(database.NewKey("answer", N+1))
	require.ErrorIs(t, err, errors.NotFound)

	for i := 0; i < N; i++ {
		err := batch.Put(database.NewKey("answer", i), []byte(fmt.Sprintf("%x this much data ", i)))
		require.NoError(t, err, "Put")
	}
	require.NoError(t, batch.Commit())

	// Verify with a new batch
	batch = db.Begin(nil, false)
	defer batch.Discard()
	for i := 0; i < N; i++ {
		val, err := batch.Get(database.NewKey("answer", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}
	batch.Discard()

	// Verify with a fresh instance
	db.Close()
	db = openDb(t, open)

	batch = db.Begin(nil, false)
	defer batch.Discard()
	for i := 0; i < N; i++ {
		val, err := batch.Get(database.NewKey("answer", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}
}

func TestSubBatch(t *testing.T, open Opener) {
	db := openDb(t, open)

	batch := db.Begin(nil, true)
	defer batch.Discard()
	sub := batch.Begin(nil, true)
	defer sub.Discard()

	for i := 0; i < 100; i++ {
		err := sub.Put(database.NewKey("answer", i), []byte(fmt.Sprintf("%x this much data ", i)))
		require.NoError(t, err, "Put")
	}

	// Commit and begin a new sub-batch
	require.NoError(t, sub.Commit())
	sub = batch.Begin(nil, true)
	defer sub.Discard()

	for i := 0; i < 100; i++ {
		val, err := sub.Get(database.NewKey("answer", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}
}

func TestPrefix(t *testing.T, open Opener) {
	data := make([]byte, 10)
	_, err := io.ReadFull(rand.Reader, data)
	require.NoError(t, err)

	db := openDb(t, open)

	const prefix, key = "foo", "bar"
	batch := db.Begin(database.NewKey(prefix), true)
	defer batch.Discard()
	require.NoError(t, batch.Put(database.NewKey(key), data))
	require.NoError(t, batch.Commit())

	batch = db.Begin(database.NewKey(prefix), false)
	defer batch.Discard()
	v, err := batch.Get(database.NewKey(key))
	require.NoError(t, err)
	require.Equal(t, data, v)

	// The unprefixed key must not exist
	_, err = batch.Get(database.NewKey(prefix+"x", key))
	require.ErrorIs(t, err, errors.NotFound)
}

func TestDelete(t *testing.T, open Opener) {
	db := openDb(t, open)

	// Write a value
	batch := db.Begin(nil, true)
	defer batch.Discard()
	require.NoError(t, batch.Put(database.NewKey("foo"), []byte("bar")))
	require.NoError(t, batch.Commit())

	// Delete the value
	batch = db.Begin(nil, true)
	defer batch.Discard()
	require.NoError(t, batch.Delete(database.NewKey("foo")))

	// Verify it returns not found from the same batch
	_, err := batch.Get(database.NewKey("foo"))
	require.ErrorIs(t, err, errors.NotFound)

	// Commit and reopen
	require.NoError(t, batch.Commit())
	db.Close()
	db = openDb(t, open)

	batch = db.Begin(nil, false)
	defer batch.Discard()
	_, err = batch.Get(database.NewKey("foo"))
	require.ErrorIs(t, err, errors.NotFound)
}

func TestDiscard(t *testing.T, open Opener) {
	db := openDb(t, open)

	batch := db.Begin(nil, true)
	require.NoError(t, batch.Put(database.NewKey("left"), []byte("1")))
	require.NoError(t, batch.Put(database.NewKey("right"), []byte("2")))
	batch.Discard()

	batch = db.Begin(nil, false)
	defer batch.Discard()
	for _, k := range []string{"left", "right"} {
		_, err := batch.Get(database.NewKey(k))
		require.ErrorIs(t, err, errors.NotFound)
	}
}

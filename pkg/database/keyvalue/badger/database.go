// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/defios/repotoken/pkg/database"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue"
	"gitlab.com/defios/repotoken/pkg/database/keyvalue/memory"
	"gitlab.com/defios/repotoken/pkg/errors"
	"golang.org/x/exp/slog"
)

// Database is a ledger store backed by Badger. Each change set reads from a
// Badger read transaction and commits through a single write batch, so an
// instruction's writes land together or not at all.
type Database struct {
	badger  *badger.DB
	ready   bool
	mu      sync.RWMutex
	stop    chan struct{}
	logger  *slog.Logger
	metrics *metrics
}

var _ keyvalue.Beginner = (*Database)(nil)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	truncate   bool
}

// Option configures a [Database].
type Option func(*options)

// WithLogger sets the logger that receives Badger's output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the store's metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTruncate configures Badger to truncate corrupted data. If the process
// is terminated abruptly, especially on Windows, this may be necessary to
// recover the ledger.
func WithTruncate(truncate bool) Option {
	return func(o *options) { o.truncate = truncate }
}

func New(filepath string, opts ...Option) (*Database, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	// Make sure all directories exist
	err := os.MkdirAll(filepath, 0700)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open badger: create %q: %w", filepath, err)
	}

	d := new(Database)
	d.logger = o.logger.With("module", "badger")
	d.metrics = newMetrics(o.registerer)

	bopts := badger.DefaultOptions(filepath).
		WithLogger(slogger{d.logger}).
		WithTruncate(o.truncate)

	d.badger, err = badger.Open(bopts)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open badger: %w", err)
	}
	d.ready = true
	d.stop = make(chan struct{})
	d.metrics.open.Inc()

	go d.gc()

	return d, nil
}

func (d *Database) key(key *database.Key) []byte {
	h := key.Hash()
	return h[:]
}

// Begin begins a change set.
func (d *Database) Begin(prefix *database.Key, writable bool) keyvalue.ChangeSet {
	rd := d.badger.NewTransaction(false)
	d.metrics.txnOpen.Inc()

	get := func(key *database.Key) ([]byte, error) {
		item, err := rd.Get(d.key(key))
		switch {
		case err == nil:
			// Ok
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil, errors.NotFound.WithFormat("%v not found", key)
		default:
			return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
		}

		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
		}
		return v, nil
	}

	var commit memory.CommitFunc
	if writable {
		commit = func(entries map[database.KeyHash]memory.Entry) error {
			l, err := d.lock(false)
			if err != nil {
				return err
			}
			defer l.Unlock()

			start := time.Now()
			defer func() { d.metrics.commitDuration.Observe(time.Since(start).Seconds()) }()

			// Use a write batch for writing to work around Badger's
			// transaction size limits
			wr := d.badger.NewWriteBatch()

			for _, e := range entries {
				if e.Delete {
					err = wr.Delete(d.key(e.Key))
				} else {
					err = wr.Set(d.key(e.Key), e.Value)
				}
				if err != nil {
					wr.Cancel()
					return errors.UnknownError.WithFormat("write %v: %w", e.Key, err)
				}
			}

			err = wr.Flush()
			if err != nil {
				return errors.UnknownError.WithFormat("flush: %w", err)
			}
			d.metrics.entriesWritten.Add(float64(len(entries)))
			return nil
		}
	}

	discard := func() {
		rd.Discard()
		d.metrics.txnOpen.Dec()
	}

	// The memory change set caches entries in a map so Get sees values
	// written with Put, regardless of Badger's transaction behavior
	return memory.NewChangeSet(prefix, get, commit, discard)
}

// Close closes the underlying database.
func (d *Database) Close() error {
	l, err := d.lock(true)
	if err != nil {
		return err
	}
	defer l.Unlock()

	d.ready = false
	close(d.stop)
	d.metrics.open.Dec()
	return d.badger.Close()
}

func (d *Database) gc() {
	tick := time.NewTicker(time.Hour)
	defer tick.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-tick.C:
		}

		l, err := d.lock(false)
		if err != nil {
			return
		}

		// Run GC if 50% space could be reclaimed
		start := time.Now()
		err = d.badger.RunValueLogGC(0.5)
		if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			d.logger.Error("Value log GC failed", "error", err)
		}
		d.metrics.gcRuns.Inc()
		d.metrics.gcDuration.Set(time.Since(start).Seconds())

		l.Unlock()
	}
}

// lock acquires a lock on the ready mutex and checks for readiness. This
// prevents races between commits and Close.
func (d *Database) lock(closing bool) (sync.Locker, error) {
	var l sync.Locker = &d.mu
	if !closing {
		l = d.mu.RLocker()
	}

	l.Lock()
	if !d.ready {
		l.Unlock()
		return nil, errors.NotReady.With("database is closed")
	}

	return l, nil
}

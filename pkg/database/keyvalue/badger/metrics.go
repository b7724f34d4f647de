// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	open           prometheus.Gauge
	txnOpen        prometheus.Gauge
	gcRuns         prometheus.Counter
	gcDuration     prometheus.Gauge
	commitDuration prometheus.Histogram
	entriesWritten prometheus.Counter
}

// newMetrics creates the store's metrics. A nil registerer leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	m := new(metrics)
	m.open = f.NewGauge(prometheus.GaugeOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "db_open",
		Help:      "Number of open databases",
	})
	m.txnOpen = f.NewGauge(prometheus.GaugeOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "txn_open",
		Help:      "Number of open read transactions",
	})
	m.gcRuns = f.NewCounter(prometheus.CounterOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "gc_runs_total",
		Help:      "Number of times value log garbage collection has run",
	})
	m.gcDuration = f.NewGauge(prometheus.GaugeOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "gc_duration_seconds",
		Help:      "Duration of the last garbage collection",
	})
	m.commitDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "commit_duration_seconds",
		Help:      "Duration of ledger commits",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
	m.entriesWritten = f.NewCounter(prometheus.CounterOpts{
		Namespace: "repotoken",
		Subsystem: "badger",
		Name:      "entries_written_total",
		Help:      "Number of entries written or deleted by commits",
	})
	return m
}

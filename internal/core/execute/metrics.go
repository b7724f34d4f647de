// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	instructions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// newMetrics creates the executor's collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		instructions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repotoken",
			Subsystem: "executor",
			Name:      "instructions_total",
			Help:      "The number of instructions executed, by type and status",
		}, []string{"instruction", "status"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "repotoken",
			Subsystem: "executor",
			Name:      "duration_seconds",
			Help:      "The time taken to execute an instruction",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"instruction"}),
	}
}

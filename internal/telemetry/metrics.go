// SPDX-License-Identifier: EPL-2.0

// Package telemetry holds the prometheus collectors shared by the engine.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tfplayer"

// Track end reasons.
const (
	ReasonFinished = "finished"
	ReasonFailed   = "failed"
	ReasonSkipped  = "skipped"
	ReasonCleared  = "cleared"
)

// Metrics groups every collector on its own registry, so several engines
// can live in one process (and in parallel tests).
type Metrics struct {
	Registry *prometheus.Registry

	Underruns       prometheus.Counter
	SamplesPlayed   prometheus.Counter
	SegmentsFetched prometheus.Counter
	SegmentsFailed  prometheus.Counter
	FetchRetries    prometheus.Counter
	RangeRequests   prometheus.Counter
	TrackEnds       *prometheus.CounterVec
	QueueLength     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Underruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "underruns_total",
			Help:      "Audio callbacks that found fewer samples than requested.",
		}),
		SamplesPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "samples_played_total",
			Help:      "Samples copied from the ring buffer to the device.",
		}),
		SegmentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hls",
			Name:      "segments_fetched_total",
			Help:      "HLS segments downloaded into the cache.",
		}),
		SegmentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hls",
			Name:      "segments_failed_total",
			Help:      "HLS segments that failed after all retries.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Retried HTTP requests.",
		}),
		RangeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "range_requests_total",
			Help:      "Progressive HTTP requests carrying a Range header.",
		}),
		TrackEnds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "player",
			Name:      "track_ends_total",
			Help:      "Tracks leaving the player, by reason.",
		}, []string{"reason"}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "player",
			Name:      "queue_length",
			Help:      "Tracks waiting behind the current one.",
		}),
	}

	m.Registry.MustRegister(
		m.Underruns,
		m.SamplesPlayed,
		m.SegmentsFetched,
		m.SegmentsFailed,
		m.FetchRetries,
		m.RangeRequests,
		m.TrackEnds,
		m.QueueLength,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

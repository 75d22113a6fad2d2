// Package metrics declares the prometheus collectors shared by the
// server and the announcer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TTSCacheHits counts cache hits by layer ("redis" or "table").
	TTSCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playzone",
		Name:      "tts_cache_hits_total",
		Help:      "Synthesis cache hits by layer.",
	}, []string{"layer"})

	// TTSSynthesis counts calls to the paid synthesis provider.
	TTSSynthesis = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playzone",
		Name:      "tts_synthesis_total",
		Help:      "Synthesis provider calls by result.",
	}, []string{"result"})

	ReservationsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playzone",
		Name:      "reservations_ended_total",
		Help:      "Reservations moved to ended by the guarded end transition.",
	})

	ReservationsAutoStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playzone",
		Name:      "reservations_auto_started_total",
		Help:      "Reservations moved to started by the bulk sweep.",
	})

	// Announcements counts announcer pipeline outcomes.
	Announcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playzone",
		Name:      "announcements_total",
		Help:      "Pickup announcement attempts by result.",
	}, []string{"result"})
)

package sitemap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesEmitted counts entries written, by section (static, category, item)
	EntriesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_entries_total",
			Help: "Total number of sitemap entries emitted",
		},
		[]string{"section"},
	)

	// ShardsSealed counts sealed shards by section
	ShardsSealed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_shards_sealed_total",
			Help: "Total number of sitemap shards sealed",
		},
		[]string{"section"},
	)

	// SlugCollisions counts entries dropped because an earlier entry claimed the same location
	SlugCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitemap_slug_collisions_total",
			Help: "Total number of entries dropped on a location collision",
		},
	)

	// RunDuration tracks run and render durations by mode and outcome
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitemap_run_duration_seconds",
			Help:    "Duration of sitemap runs",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"mode", "outcome"},
	)
)

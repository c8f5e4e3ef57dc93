// Package metrics registers the prometheus collectors stow exposes
// for its storage engine: artifact cache effectiveness, delta
// compression ratio, deck parsing throughput, and crosslink latency.
// Collectors are package-level and registered eagerly via promauto,
// the same pattern the teacher repo's metrics package used for its
// cluster-state gauges and counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts artifact cache lookups that found a resident entry.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stow_cache_hits_total",
		Help: "Artifact cache lookups served from the resident cache.",
	})

	// CacheMisses counts artifact cache lookups that required a storage read.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stow_cache_misses_total",
		Help: "Artifact cache lookups that missed the resident cache.",
	})

	// CacheSize reports the current number of resident cache entries.
	CacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stow_cache_entries",
		Help: "Current number of artifacts resident in the cache.",
	})

	// DeltaCompressionRatio observes delta_size/artifact_size for every
	// delta-encoded Put.
	DeltaCompressionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stow_delta_compression_ratio",
		Help:    "Ratio of encoded delta size to target artifact size.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// DeckParseTotal counts cards parsed out of deck artifacts, by subtype.
	DeckParseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stow_deck_cards_parsed_total",
		Help: "Cards parsed from deck artifacts, by card type.",
	}, []string{"card_type"})

	// CrosslinkDuration observes how long crosslinking a manifest takes.
	CrosslinkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stow_crosslink_duration_seconds",
		Help:    "Time spent crosslinking a manifest into the relational tables.",
		Buckets: prometheus.DefBuckets,
	})

	// LeafTableSize reports the number of RIDs currently marked as leaves.
	LeafTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stow_leaf_table_size",
		Help: "Current number of check-ins marked as DAG leaves.",
	})
)

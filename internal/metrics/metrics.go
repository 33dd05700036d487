// Package metrics exposes the Prometheus metrics of the store
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status of an ingestion
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusAborted = "aborted"
)

// Sources of a block
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Results of a tile cache lookup
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	blockReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverstore_block_reads_total",
			Help: "Blocks returned to the callers, by source.",
		},
		[]string{"source"},
	)

	blockEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coverstore_block_cache_evictions_total",
			Help: "Blocks evicted from the block cache.",
		},
	)

	windowReadSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coverstore_window_read_duration_seconds",
			Help:    "Duration of the window reads in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"coverage"},
	)

	tilesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverstore_tiles_decoded_total",
			Help: "Tiles decoded, by compression.",
		},
		[]string{"compression"},
	)

	tilesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverstore_tiles_loaded_total",
			Help: "Tiles written to the store, by coverage.",
		},
		[]string{"coverage"},
	)

	tileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverstore_tile_cache_lookups_total",
			Help: "Compressed tiles looked up in the tile cache, by result.",
		},
		[]string{"result"},
	)

	ingests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverstore_ingests_total",
			Help: "Ingestions, by status.",
		},
		[]string{"status"},
	)
)

// ObserveBlockRead counts a block read from the given source
func ObserveBlockRead(source string) {
	blockReads.WithLabelValues(source).Inc()
}

// ObserveBlockEviction counts a block evicted from the cache
func ObserveBlockEviction() {
	blockEvictions.Inc()
}

// ObserveWindowRead records the duration of a window read
func ObserveWindowRead(coverage string, seconds float64) {
	windowReadSeconds.WithLabelValues(coverage).Observe(seconds)
}

// ObserveTileDecoded counts a decoded tile
func ObserveTileDecoded(compression string) {
	tilesDecoded.WithLabelValues(compression).Inc()
}

// ObserveTilesLoaded counts the tiles written to the store
func ObserveTilesLoaded(coverage string, n int) {
	tilesLoaded.WithLabelValues(coverage).Add(float64(n))
}

// ObserveTileCache counts n tiles looked up in the tile cache (CacheHit, CacheMiss or CacheError)
func ObserveTileCache(result string, n int) {
	tileCacheLookups.WithLabelValues(result).Add(float64(n))
}

// ObserveIngest counts an ingestion by status (StatusSuccess, StatusFailure or StatusAborted)
func ObserveIngest(status string) {
	ingests.WithLabelValues(status).Inc()
}

// Handler serves the metrics of the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_rows_ingested_total",
			Help: "Total number of result rows decoded and appended to tiles.",
		},
	)
	decodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_cell_decode_errors_total",
			Help: "Total number of cells that failed to decode.",
		},
	)
	tilesSealedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_tiles_sealed_total",
			Help: "Total number of tiles sealed.",
		},
	)
	tilesEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_tiles_evicted_total",
			Help: "Total number of sealed tiles evicted to honor the memory budget.",
		},
	)
	tilesRefetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_tiles_refetched_total",
			Help: "Total number of evicted tiles re-materialized from the warehouse.",
		},
	)
	residentTileBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "frostbench_resident_tile_bytes",
			Help: "Estimated memory currently held by resident tiles.",
		},
	)
	fetchBatchDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frostbench_fetch_batch_duration_ms",
			Help:    "Cursor batch fetch and decode latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	statsComputeDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frostbench_stats_compute_duration_ms",
			Help:    "Selection statistics compute latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	exportedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frostbench_exported_rows_total",
			Help: "Total number of rows written by the exporter.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		rowsIngestedTotal,
		decodeErrorsTotal,
		tilesSealedTotal,
		tilesEvictedTotal,
		tilesRefetchedTotal,
		residentTileBytes,
		fetchBatchDurationMs,
		statsComputeDurationMs,
		exportedRowsTotal,
	)
}

func ObserveFetchBatch(rows int, decodeErrors int, elapsed time.Duration) {
	if rows > 0 {
		rowsIngestedTotal.Add(float64(rows))
	}
	if decodeErrors > 0 {
		decodeErrorsTotal.Add(float64(decodeErrors))
	}
	fetchBatchDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveTileSealed() {
	tilesSealedTotal.Inc()
}

func ObserveTileEvicted() {
	tilesEvictedTotal.Inc()
}

func ObserveTileRefetched() {
	tilesRefetchedTotal.Inc()
}

func SetResidentTileBytes(bytes int64) {
	if bytes < 0 {
		bytes = 0
	}
	residentTileBytes.Set(float64(bytes))
}

func ObserveStatsCompute(elapsed time.Duration) {
	statsComputeDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveExportedRows(rows int64) {
	if rows > 0 {
		exportedRowsTotal.Add(float64(rows))
	}
}

package seqtable

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan metrics. Counters are package-level so every scanner shares them;
// RegisterMetrics exposes them on a host-provided registry.
var (
	metricFilesOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_files_opened_total",
		Help: "Total number of source files opened for decoding",
	})

	metricFilesPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_files_pruned_total",
		Help: "Total number of source files skipped by partition pruning",
	})

	metricRowsDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_rows_decoded_total",
		Help: "Total number of rows decoded across all scans",
	})

	metricBatchesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_batches_emitted_total",
		Help: "Total number of batches emitted to consumers",
	})

	metricBytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_bytes_read_total",
		Help: "Total raw bytes read from storage backends, before decompression",
	})

	metricScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seqtable_scan_errors_total",
		Help: "Total number of scans that failed",
	})

	metricActivePipelines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seqtable_active_pipelines",
		Help: "Number of file decode pipelines currently in flight",
	})
)

// RegisterMetrics registers the engine's scan metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		metricFilesOpened,
		metricFilesPruned,
		metricRowsDecoded,
		metricBatchesEmitted,
		metricBytesRead,
		metricScanErrors,
		metricActivePipelines,
	)
}

// countingReadCloser feeds the bytes-read counter from raw backend streams.
type countingReadCloser struct {
	io.ReadCloser
}

func (c countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 {
		metricBytesRead.Add(float64(n))
	}
	return n, err
}

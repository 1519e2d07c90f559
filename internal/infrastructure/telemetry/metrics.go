package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	storeAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emperator",
			Subsystem: "telemetry",
			Name:      "appends_total",
			Help:      "Telemetry run appends by store and result",
		},
		[]string{"store", "result"},
	)

	storeEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emperator",
			Subsystem: "telemetry",
			Name:      "evicted_runs_total",
			Help:      "Runs dropped by the per-fingerprint retention cap",
		},
		[]string{"store"},
	)

	storeCorruptRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emperator",
			Subsystem: "telemetry",
			Name:      "corrupt_records_total",
			Help:      "Unparseable telemetry records skipped while reading",
		},
		[]string{"store"},
	)

	storeScanCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emperator",
			Subsystem: "telemetry",
			Name:      "scan_cache_total",
			Help:      "File store scan cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

func recordAppend(store string, err error, evicted int) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	storeAppends.WithLabelValues(store, result).Inc()
	if evicted > 0 {
		storeEvictions.WithLabelValues(store).Add(float64(evicted))
	}
}

func recordCorrupt(store string, n int) {
	if n > 0 {
		storeCorruptRecords.WithLabelValues(store).Add(float64(n))
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	productsImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "products_imported_total",
			Help: "Products successfully upserted into the catalog, by provider.",
		},
		[]string{"provider"},
	)
	productsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "products_import_failed_total",
			Help: "Items that failed during import, by provider.",
		},
		[]string{"provider"},
	)
	importJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "import_job_duration_seconds",
			Help:    "Wall-clock duration of import jobs, by provider and terminal status.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"provider", "status"},
	)
	supplierCallsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supplier_calls_in_flight",
			Help: "Supplier API calls currently in flight, by provider.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(productsImportedTotal)
	prometheus.MustRegister(productsFailedTotal)
	prometheus.MustRegister(importJobDuration)
	prometheus.MustRegister(supplierCallsInFlight)
}

func RecordImported(provider string, n int) {
	productsImportedTotal.WithLabelValues(provider).Add(float64(n))
}

func RecordImportFailed(provider string, n int) {
	productsFailedTotal.WithLabelValues(provider).Add(float64(n))
}

func RecordJobDuration(provider, status string, duration time.Duration) {
	importJobDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

func SupplierCallStarted(provider string) {
	supplierCallsInFlight.WithLabelValues(provider).Inc()
}

func SupplierCallFinished(provider string) {
	supplierCallsInFlight.WithLabelValues(provider).Dec()
}

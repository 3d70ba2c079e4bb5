package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glucorisk"

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	predictionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Count of completed predictions by risk tier.",
		},
		[]string{"tier"},
	)
	predictionErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Count of failed predictions by kind (model_unavailable, inference_failed).",
		},
		[]string{"kind"},
	)
	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of a single model inference call.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend"},
	)
	modelLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when the model artifact loaded at startup, 0 otherwise.",
		},
		[]string{"backend"},
	)
	historyWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_errors_total",
			Help:      "Count of predictions that could not be written to the history store.",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(
			predictionCounter,
			predictionErrorCounter,
			inferenceDuration,
			modelLoaded,
			historyWriteErrors,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func RecordPrediction(tier string) {
	predictionCounter.WithLabelValues(tier).Inc()
}

func RecordPredictionError(kind string) {
	predictionErrorCounter.WithLabelValues(kind).Inc()
}

func RecordInferenceDuration(backend string, d time.Duration) {
	inferenceDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordModelLoaded sets the load gauge for backend.
func RecordModelLoaded(backend string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	modelLoaded.WithLabelValues(backend).Set(v)
}

func RecordHistoryWriteError() {
	historyWriteErrors.Inc()
}

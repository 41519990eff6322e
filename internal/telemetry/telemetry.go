// Package telemetry owns the crawler's Prometheus metrics and the small ops
// HTTP surface that exposes them.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Marker outcomes recorded by ObserveMarker.
const (
	OutcomeSuccess    = "success"
	OutcomeTransient  = "transient"
	OutcomeUnexpected = "unexpected"
)

// --- CUSTOM METRIC DEFINITIONS ---

var (
	iterationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stationcrawler_iterations_total",
			Help: "Total number of completed passes over the discovered map markers.",
		},
	)

	markersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationcrawler_markers_total",
			Help: "Total number of marker visits, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	sessionRestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationcrawler_session_restarts_total",
			Help: "Total number of app restarts, labeled by reason.",
		},
		[]string{"reason"},
	)

	recordsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stationcrawler_records_written_total",
			Help: "Total number of lines appended to the data file.",
		},
	)

	retryBudgetUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stationcrawler_retry_budget_used",
			Help: "Accumulated failures since the last forced restart.",
		},
	)

	appiumRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stationcrawler_appium_request_duration_seconds",
			Help:    "Histogram of Appium command latencies, labeled by command and outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"command", "outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationcrawler_http_requests_total",
			Help: "Total number of ops HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)
)

// --- HELPER FUNCTIONS ---

// ObserveIteration records a completed iteration.
func ObserveIteration() {
	iterationsTotal.Inc()
}

// ObserveMarker records the outcome of one marker visit.
func ObserveMarker(outcome string) {
	markersTotal.WithLabelValues(outcome).Inc()
}

// ObserveSessionRestart records an app restart and why it happened.
func ObserveSessionRestart(reason string) {
	sessionRestartsTotal.WithLabelValues(reason).Inc()
}

// ObserveRecordWritten records one line appended to the data file.
func ObserveRecordWritten() {
	recordsWrittenTotal.Inc()
}

// SetRetryBudgetUsed publishes the retry governor's current count.
func SetRetryBudgetUsed(n int) {
	retryBudgetUsed.Set(float64(n))
}

// ObserveAppiumRequest records the latency of one WebDriver round trip.
func ObserveAppiumRequest(command string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	appiumRequestDurationSeconds.WithLabelValues(command, outcome).Observe(duration.Seconds())
}

// --- HTTP HANDLER & MIDDLEWARE ---

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that counts ops requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.statusCode)).Inc()
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// NewRouter exposes /healthz and /metrics.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // best-effort health response
	})
	r.Method(http.MethodGet, "/metrics", Handler())
	return r
}

// Serve runs the ops server on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	logger.Info("ops server stopped")
	return nil
}

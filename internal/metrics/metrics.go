package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordPollRun(status string, duration time.Duration)
	RecordPostProcessed(status string)
	RecordNotification(status string)
	RecordSweep(target string, deleted int)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordPollRun(status string, duration time.Duration) {}
func (m *NoOpMetrics) RecordPostProcessed(status string)                   {}
func (m *NoOpMetrics) RecordNotification(status string)                    {}
func (m *NoOpMetrics) RecordSweep(target string, deleted int)              {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)              {}
func (m *NoOpMetrics) Handler() http.Handler                               { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init initializes metrics (no-op for now, can be extended with Prometheus)
func Init() {
	// For now, keep using no-op metrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordPollRun records one poll cycle
func RecordPollRun(status string, duration time.Duration) {
	globalMetrics.RecordPollRun(status, duration)
}

// RecordPostProcessed records the outcome of processing one post
func RecordPostProcessed(status string) {
	globalMetrics.RecordPostProcessed(status)
}

// RecordNotification records the outcome of one push delivery
func RecordNotification(status string) {
	globalMetrics.RecordNotification(status)
}

// RecordSweep records an expiry sweep
func RecordSweep(target string, deleted int) {
	globalMetrics.RecordSweep(target, deleted)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}

package prometheus

import (
	"strconv"
	"time"

	"vendor-service/internal/model"
	"vendor-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All collectors stay nil until InitMetrics or Register runs; the helpers
// below are no-ops in that case so packages can be used without metrics.
var (
	// HTTP request metrics
	HttpRequestsTotal       *prometheus.CounterVec
	HttpRequestDuration     *prometheus.HistogramVec
	HttpStatusCategoryTotal *prometheus.CounterVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Vendor and purchase order metrics
	VendorOperationsCounter        *prometheus.CounterVec
	PurchaseOrderOperationsCounter *prometheus.CounterVec

	// Performance engine metrics
	RecomputeCounter  *prometheus.CounterVec
	RecomputeDuration prometheus.Histogram
	VendorKPIGauge    *prometheus.GaugeVec
)

// InitMetrics registers the service's metrics on the default registry
func InitMetrics(config *config.Config) {
	Register(prometheus.DefaultRegisterer, config.Metrics.Prefix)
}

// Register creates every collector with the given name prefix on reg
func Register(reg prometheus.Registerer, prefix string) {
	factory := promauto.With(reg)

	HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HttpStatusCategoryTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "path"},
	)

	AuthAttemptsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	VendorOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_vendor_operations_total",
			Help: "Total number of vendor operations",
		},
		[]string{"operation"},
	)

	PurchaseOrderOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_purchase_order_operations_total",
			Help: "Total number of purchase order operations",
		},
		[]string{"operation"},
	)

	RecomputeCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_performance_recompute_total",
			Help: "Total number of vendor performance recomputations",
		},
		[]string{"result"},
	)

	RecomputeDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_performance_recompute_duration_seconds",
			Help:    "Duration of vendor performance recomputations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VendorKPIGauge = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_vendor_kpi",
			Help: "Latest recomputed KPI value per vendor",
		},
		[]string{"vendor_id", "kpi"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// TrackRecompute returns a function that records the duration of a recomputation
func TrackRecompute() func(startTime time.Time) {
	return func(startTime time.Time) {
		if RecomputeDuration == nil {
			return
		}
		RecomputeDuration.Observe(time.Since(startTime).Seconds())
	}
}

// RecordRecompute counts a recomputation by result (success, error)
func RecordRecompute(result string) {
	if RecomputeCounter == nil {
		return
	}
	RecomputeCounter.WithLabelValues(result).Inc()
}

// RecordVendorOperation increments the counter for vendor operations
func RecordVendorOperation(operation string) {
	if VendorOperationsCounter == nil {
		return
	}
	VendorOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordPurchaseOrderOperation increments the counter for purchase order operations
func RecordPurchaseOrderOperation(operation string) {
	if PurchaseOrderOperationsCounter == nil {
		return
	}
	PurchaseOrderOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records a finished request
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if HttpRequestsTotal == nil {
		return
	}
	statusStr := strconv.Itoa(status)
	HttpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	HttpRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())

	category := ""
	switch {
	case status >= 200 && status < 300:
		category = "2xx"
	case status >= 400 && status < 500:
		category = "4xx"
	case status >= 500 && status < 600:
		category = "5xx"
	}
	if category != "" {
		HttpStatusCategoryTotal.WithLabelValues(category, method, path).Inc()
	}
}

// RecordAuthAttempt counts an authentication attempt and its outcome
func RecordAuthAttempt(success bool) {
	if AuthAttemptsCounter == nil {
		return
	}
	AuthAttemptsCounter.Inc()
	if success {
		AuthSuccessCounter.Inc()
	} else {
		AuthErrorsCounter.Inc()
	}
}

// UpdateVendorKPIs publishes a vendor's latest KPI values
func UpdateVendorKPIs(vendorID uint, m model.PerformanceMetrics) {
	if VendorKPIGauge == nil {
		return
	}
	id := strconv.FormatUint(uint64(vendorID), 10)
	VendorKPIGauge.WithLabelValues(id, "on_time_delivery_rate").Set(m.OnTimeDeliveryRate)
	VendorKPIGauge.WithLabelValues(id, "quality_rating_avg").Set(m.QualityRatingAvg)
	VendorKPIGauge.WithLabelValues(id, "average_response_time").Set(m.AverageResponseTime)
	VendorKPIGauge.WithLabelValues(id, "fulfillment_rate").Set(m.FulfillmentRate)
}

// DeleteVendorKPIs drops the gauges of a deleted vendor
func DeleteVendorKPIs(vendorID uint) {
	if VendorKPIGauge == nil {
		return
	}
	VendorKPIGauge.DeletePartialMatch(prometheus.Labels{"vendor_id": strconv.FormatUint(uint64(vendorID), 10)})
}

package prometheus

import (
	"net/http"
	"testing"
	"time"

	"vendor-service/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequestCategories(t *testing.T) {
	Register(prometheus.NewRegistry(), "test")

	RecordHTTPRequest(http.MethodGet, "/api/vendors", 200, 10*time.Millisecond)
	RecordHTTPRequest(http.MethodGet, "/api/vendors", 200, 10*time.Millisecond)
	RecordHTTPRequest(http.MethodGet, "/api/vendors/:id", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("GET", "/api/vendors", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(HttpStatusCategoryTotal.WithLabelValues("2xx", "GET", "/api/vendors")))
	assert.Equal(t, 1.0, testutil.ToFloat64(HttpStatusCategoryTotal.WithLabelValues("4xx", "GET", "/api/vendors/:id")))
}

func TestRecomputeAndOperationCounters(t *testing.T) {
	Register(prometheus.NewRegistry(), "test")

	RecordRecompute("success")
	RecordRecompute("success")
	RecordRecompute("error")
	RecordVendorOperation("create")
	RecordPurchaseOrderOperation("acknowledge")
	RecordAuthAttempt(true)
	RecordAuthAttempt(false)
	TrackRecompute()(time.Now())
	TrackDBOperation("query")(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(RecomputeCounter.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(RecomputeCounter.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(VendorOperationsCounter.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(PurchaseOrderOperationsCounter.WithLabelValues("acknowledge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(AuthAttemptsCounter))
	assert.Equal(t, 1.0, testutil.ToFloat64(AuthErrorsCounter))
	assert.Equal(t, 1, testutil.CollectAndCount(RecomputeDuration))
}

func TestVendorKPIGauges(t *testing.T) {
	Register(prometheus.NewRegistry(), "test")

	UpdateVendorKPIs(7, model.PerformanceMetrics{OnTimeDeliveryRate: 66.67, QualityRatingAvg: 4.5, AverageResponseTime: 3600, FulfillmentRate: 100})
	UpdateVendorKPIs(8, model.PerformanceMetrics{})

	assert.Equal(t, 66.67, testutil.ToFloat64(VendorKPIGauge.WithLabelValues("7", "on_time_delivery_rate")))
	assert.Equal(t, 3600.0, testutil.ToFloat64(VendorKPIGauge.WithLabelValues("7", "average_response_time")))
	assert.Equal(t, 8, testutil.CollectAndCount(VendorKPIGauge))

	DeleteVendorKPIs(7)
	assert.Equal(t, 4, testutil.CollectAndCount(VendorKPIGauge))
}

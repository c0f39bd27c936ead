package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCapacityCheck(t *testing.T) {
	m := New(DefaultConfig("cutoff-service"))

	m.RecordCapacityCheck(true, "VIP", false, 3*time.Millisecond)
	m.RecordCapacityCheck(false, "STANDARD", true, time.Millisecond)
	m.RecordCapacityCheck(false, "STANDARD", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapacityChecksTotal.WithLabelValues("approved", "VIP")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapacityChecksTotal.WithLabelValues("rejected", "STANDARD")))
}

func TestRecordCacheLookup(t *testing.T) {
	m := New(DefaultConfig("cutoff-service"))

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("miss")))
}

func TestHandler_ExposesNamespacedMetrics(t *testing.T) {
	m := New(DefaultConfig("cutoff-service"))
	m.SetWarehouseUtilization("WH-MAIN", 0.72)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wms_cutoff_warehouse_utilization_ratio{warehouse_id="WH-MAIN"} 0.72`)
}

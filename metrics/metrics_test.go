package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRequest(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		duration   float64
		success    bool
		wantStatus string
	}{
		{
			name:       "successful request",
			tool:       "test_tool",
			duration:   0.5,
			success:    true,
			wantStatus: "success",
		},
		{
			name:       "failed request",
			tool:       "test_tool",
			duration:   1.0,
			success:    false,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRequest(tt.tool, tt.duration, tt.success)

			counter, err := RequestsTotal.GetMetricWithLabelValues(tt.tool, tt.wantStatus)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}

			var m dto.Metric
			if err := counter.Write(&m); err != nil {
				t.Fatalf("failed to write metric: %v", err)
			}

			if m.Counter.GetValue() < 1 {
				t.Error("expected counter to be incremented")
			}
		})
	}
}

func TestRecordAPICall(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		action   string
		duration float64
		success  bool
	}{
		{
			name:     "successful API call",
			host:     "incubator.wikimedia.org",
			action:   "query",
			duration: 0.1,
			success:  true,
		},
		{
			name:     "failed API call",
			host:     "xyz.wikipedia.org",
			action:   "import",
			duration: 0.5,
			success:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPICall(tt.host, tt.action, tt.duration, tt.success)

			status := "success"
			if !tt.success {
				status = "error"
			}
			counter, err := WikiAPIRequestsTotal.GetMetricWithLabelValues(tt.host, tt.action, status)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}

			var m dto.Metric
			if err := counter.Write(&m); err != nil {
				t.Fatalf("failed to write metric: %v", err)
			}

			if m.Counter.GetValue() < 1 {
				t.Error("expected counter to be incremented")
			}
		})
	}
}

func TestRecordCacheAccess(t *testing.T) {
	initialHits := getCounterValue(t, CacheHits)
	initialMisses := getCounterValue(t, CacheMisses)

	RecordCacheAccess(true)
	if getCounterValue(t, CacheHits) != initialHits+1 {
		t.Error("expected cache hits to increment")
	}

	RecordCacheAccess(false)
	if getCounterValue(t, CacheMisses) != initialMisses+1 {
		t.Error("expected cache misses to increment")
	}
}

func TestSetCacheSize(t *testing.T) {
	SetCacheSize(3)

	var m dto.Metric
	if err := CacheSize.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if m.Gauge.GetValue() != 3 {
		t.Errorf("expected cache size 3, got %v", m.Gauge.GetValue())
	}

	SetCacheSize(1)
	if err := CacheSize.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if m.Gauge.GetValue() != 1 {
		t.Errorf("expected cache size 1, got %v", m.Gauge.GetValue())
	}
}

func TestImportOutcomeCounters(t *testing.T) {
	PagesImportedTotal.WithLabelValues("xyzwiki", "success").Inc()
	PagesSkippedTotal.WithLabelValues("xyzwiki").Inc()
	AccountPrecreationsTotal.WithLabelValues("error").Inc()
	ImportRunsTotal.WithLabelValues("success").Inc()
	WikiAPIRetries.WithLabelValues("import").Inc()
	WikiAPIErrors.WithLabelValues("import", "badtoken").Inc()

	counter, err := PagesImportedTotal.GetMetricWithLabelValues("xyzwiki", "success")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if m.Counter.GetValue() < 1 {
		t.Error("expected page import counter to be incremented")
	}
}

func TestMetricsRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		RequestsTotal,
		RequestDuration,
		RequestInFlight,
		PanicsRecovered,
		WikiAPIRequestsTotal,
		WikiAPILatency,
		WikiAPIErrors,
		WikiAPIRetries,
		CacheHits,
		CacheMisses,
		CacheSize,
		ImportRunsTotal,
		PagesImportedTotal,
		PagesSkippedTotal,
		AccountPrecreationsTotal,
		ImportXMLSize,
	}

	for i, m := range metrics {
		if m == nil {
			t.Errorf("metric at index %d is nil", i)
		}
	}
}

func TestNamespace(t *testing.T) {
	if Namespace != "incubator_import" {
		t.Errorf("expected namespace 'incubator_import', got '%s'", Namespace)
	}
}

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}

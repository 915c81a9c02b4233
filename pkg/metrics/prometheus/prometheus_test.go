package prometheus

import (
	"testing"
	"time"

	"arithmitra/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollector_Register(t *testing.T) {
	pc := NewPrometheusCollector("test")
	registry := prometheus.NewRegistry()

	if err := registry.Register(pc); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestPrometheusCollector_Records(t *testing.T) {
	pc := NewPrometheusCollector("test")

	pc.RecordCacheGet("L1", true, time.Millisecond)
	pc.RecordCacheGet("L1", true, time.Millisecond)
	pc.RecordAssessment("fraud", metrics.OutcomeOK, 200*time.Millisecond)
	pc.RecordTransfer("wallet", "success", 500)
	pc.RecordTransfer("wallet", "success", 250)
	pc.RecordCircuitState("gemini", metrics.CircuitOpen)

	if got := testutil.ToFloat64(pc.cacheHits.WithLabelValues("L1")); got != 2 {
		t.Errorf("Expected 2 cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(pc.assessments.WithLabelValues("fraud", "ok")); got != 1 {
		t.Errorf("Expected 1 assessment, got %v", got)
	}
	if got := testutil.ToFloat64(pc.transferAmount.WithLabelValues("wallet")); got != 750 {
		t.Errorf("Expected 750 settled, got %v", got)
	}
	if got := testutil.ToFloat64(pc.circuitState.WithLabelValues("gemini")); got != float64(metrics.CircuitOpen) {
		t.Errorf("Expected open circuit gauge, got %v", got)
	}
}

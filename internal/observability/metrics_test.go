package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.IncReportQuestion("answered")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics write: %v", err)
	}
}

func TestMetricsWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/query", "200", 300*time.Millisecond)
	m.ObserveLLM("complete", errors.New("boom"), 2*time.Second)
	m.IncReportQuestion("needs_assignment")
	m.IncReportQuestion("needs_assignment")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`dossier_api_requests_total{method="POST",route="/api/query",status="200"} 1`,
		`dossier_api_request_duration_seconds_bucket{method="POST",route="/api/query",le="0.5"} 1`,
		`dossier_api_request_duration_seconds_bucket{method="POST",route="/api/query",le="0.25"} 0`,
		`dossier_llm_requests_total{op="complete",status="error"} 1`,
		`dossier_report_questions_total{outcome="needs_assignment"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

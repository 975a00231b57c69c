package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveValidationCountsEachField(t *testing.T) {
	m := NewMetrics("test_observability_" + time.Now().Format("150405") + "_" + time.Now().Format("000000000"))

	m.ObserveValidation(map[string]string{"title": "Title is Required!", "description": "Description is Required!"})
	m.ObserveValidation(map[string]string{"title": "Title must be unique!"})
	m.ObserveValidation(nil)

	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("title")); got != 2 {
		t.Fatalf("title failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailures.WithLabelValues("description")); got != 1 {
		t.Fatalf("description failures = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveValidation(map[string]string{"title": "x"})
}

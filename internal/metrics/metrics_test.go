package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordJob(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordJob(OutcomeProcessed, 1.5)
	m.RecordJob(OutcomeProcessed, 0.2)
	m.RecordJob(OutcomeSkipped, 0.01)

	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(OutcomeProcessed)); got != 2 {
		t.Errorf("processed jobs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(OutcomeSkipped)); got != 1 {
		t.Errorf("skipped jobs = %v, want 1", got)
	}
}

func TestRecordEvent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEvent(nil)
	m.RecordEvent(errors.New("broker down"))
	m.RecordEvent(nil)

	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")); got != 1 {
		t.Errorf("error events = %v, want 1", got)
	}
}

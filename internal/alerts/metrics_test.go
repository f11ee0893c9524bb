package alerts

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestCountTriggered(t *testing.T) {
	alertsTriggered.Reset()

	CountTriggered("high")
	CountTriggered("high")
	CountTriggered("critical")

	m := &dto.Metric{}
	counter, err := alertsTriggered.GetMetricWithLabelValues("high")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)
	if m.Counter.GetValue() != 2.0 {
		t.Errorf("expected high counter 2, got %f", m.Counter.GetValue())
	}

	m = &dto.Metric{}
	counter, err = alertsTriggered.GetMetricWithLabelValues("critical")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)
	if m.Counter.GetValue() != 1.0 {
		t.Errorf("expected critical counter 1, got %f", m.Counter.GetValue())
	}
}

func TestDispatchCounters(t *testing.T) {
	dispatchTotal.Reset()

	dispatchTotal.WithLabelValues("console", "success").Inc()
	dispatchTotal.WithLabelValues("webhook", "failure").Inc()

	m := &dto.Metric{}
	counter, err := dispatchTotal.GetMetricWithLabelValues("console", "success")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)
	if m.Counter.GetValue() != 1.0 {
		t.Errorf("expected console success counter 1, got %f", m.Counter.GetValue())
	}
}

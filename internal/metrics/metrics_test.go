package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry("pryd")

	c := r.RegisterCounter("cycles_total", "cycles", nil)
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Errorf("counter = %d, want 5", c.Value())
	}

	g := r.RegisterGauge("monitor_state", "state", nil)
	g.Set(2)
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("gauge = %d, want 1", g.Value())
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry("pryd")
	a := r.RegisterCounter("cycles_total", "cycles", nil)
	b := r.RegisterCounter("cycles_total", "cycles", nil)
	if a != b {
		t.Error("same name should return the same counter")
	}
}

func TestHistogramObserve(t *testing.T) {
	h := NewHistogram("cycle_duration_seconds", "cycle time", nil, nil)
	h.ObserveDuration(15 * time.Millisecond)
	h.ObserveDuration(45 * time.Millisecond)

	if h.Count() != 2 {
		t.Errorf("count = %d, want 2", h.Count())
	}
	if mean := h.Mean(); mean < 0.02 || mean > 0.04 {
		t.Errorf("mean = %f", mean)
	}
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("pryd")
	r.RegisterCounter("messages_emitted_total", "emitted messages", nil).Add(7)
	r.RegisterGauge("tracked_messages", "snapshot size", Labels{"contact": "test"}).Set(3)

	var sb strings.Builder
	if err := r.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"# TYPE pryd_messages_emitted_total counter",
		"pryd_messages_emitted_total 7",
		`pryd_tracked_messages{contact="test"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrydMetricsRegistersEverything(t *testing.T) {
	m := NewPrydMetrics(nil)
	m.CyclesTotal.Inc()
	m.MonitorState.Set(1)
	m.CycleDuration.ObserveDuration(10 * time.Millisecond)

	var sb strings.Builder
	if err := m.Registry().WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(sb.String(), "pryd_cycles_total 1") {
		t.Error("cycle counter not exported")
	}
}

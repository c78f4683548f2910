package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOverallStatusAggregation(t *testing.T) {
	c := NewChecker()

	c.RegisterFunc("memory", true, CustomCheck(func() error { return nil }))
	c.RegisterFunc("sidecar", false, CustomCheck(func() error { return errors.New("connection refused") }))

	c.Check(context.Background())

	if got := c.OverallStatus(); got != StatusDegraded {
		t.Errorf("OverallStatus = %q, want degraded (non-critical failure)", got)
	}
}

func TestCriticalFailureIsUnhealthy(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("memory", true, CustomCheck(func() error { return errors.New("disk full") }))
	c.Check(context.Background())

	if got := c.OverallStatus(); got != StatusUnhealthy {
		t.Errorf("OverallStatus = %q, want unhealthy", got)
	}
}

func TestUncheckedCriticalIsUnknown(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("memory", true, CustomCheck(func() error { return nil }))

	if got := c.OverallStatus(); got != StatusUnknown {
		t.Errorf("OverallStatus = %q, want unknown before first check", got)
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "slow",
		Critical: true,
		Timeout:  50 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("timed-out check = %q, want unhealthy", results["slow"].Status)
	}
}

func TestReadiness(t *testing.T) {
	c := NewChecker()
	if c.IsReady() {
		t.Error("checker should start not-ready")
	}
	c.SetReady(true)
	if !c.IsReady() {
		t.Error("SetReady(true) not reflected")
	}
}

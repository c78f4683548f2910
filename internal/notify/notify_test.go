package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"pryd/internal/brain"
)

func TestNotificationTitle(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{
			"warn with contact",
			Notification{Kind: brain.ActionWarn, Contact: "张伟"},
			"张伟",
		},
		{
			"suggest without contact",
			Notification{Kind: brain.ActionSuggest},
			"要不这么回",
		},
		{
			"unknown kind falls back to raw name",
			Notification{Kind: brain.ActionKind("custom")},
			"custom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.Title(); !strings.Contains(got, tt.want) {
				t.Errorf("Title() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestUrgencyMapping(t *testing.T) {
	if urgencyFor(brain.ActionWarn) != 2 {
		t.Error("warn should be critical")
	}
	if urgencyFor(brain.ActionSuggest) != 1 {
		t.Error("suggest should be normal urgency")
	}
	if urgencyFor(brain.ActionVibe) != 0 {
		t.Error("vibe should be low urgency")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(ctx context.Context, n Notification) error {
	f.calls++
	return errors.New("display gone")
}
func (f *failingNotifier) Close() error { return nil }

type countingNotifier struct{ calls int }

func (c *countingNotifier) Notify(ctx context.Context, n Notification) error {
	c.calls++
	return nil
}
func (c *countingNotifier) Close() error { return nil }

func TestMultiContinuesPastFailures(t *testing.T) {
	failing := &failingNotifier{}
	counting := &countingNotifier{}
	m := NewMulti(slog.New(slog.DiscardHandler), failing, counting)

	err := m.Notify(context.Background(), Notification{Kind: brain.ActionThink, Body: "嗯"})
	if err != nil {
		t.Fatalf("Multi.Notify: %v", err)
	}
	if failing.calls != 1 || counting.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls, counting.calls)
	}
}

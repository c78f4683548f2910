// Package notify delivers action results to the user. The desktop
// notifier uses freedesktop notifications over the session bus; the
// console notifier writes to the log, which doubles as the headless
// and test path.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"pryd/internal/brain"
)

// Notification is one rendered action ready for display.
type Notification struct {
	Kind    brain.ActionKind
	Contact string
	Body    string
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// kindLabel is the display title prefix per action.
var kindLabel = map[brain.ActionKind]string{
	brain.ActionSuggest: "💬 要不这么回",
	brain.ActionRoast:   "😏 吐槽一下",
	brain.ActionThink:   "🤔 我在想",
	brain.ActionVibe:    "🎵 氛围感知",
	brain.ActionWarn:    "⚠️ 注意",
}

// Title renders the notification heading.
func (n Notification) Title() string {
	label, ok := kindLabel[n.Kind]
	if !ok {
		label = string(n.Kind)
	}
	if n.Contact != "" {
		return fmt.Sprintf("%s · %s", label, n.Contact)
	}
	return label
}

// urgencyFor maps actions onto freedesktop urgency levels: 0 low,
// 1 normal, 2 critical.
func urgencyFor(kind brain.ActionKind) byte {
	switch kind {
	case brain.ActionWarn:
		return 2
	case brain.ActionVibe, brain.ActionThink:
		return 0
	default:
		return 1
	}
}

// Multi fans out to several notifiers; delivery failures are logged
// per notifier and never propagate.
type Multi struct {
	notifiers []Notifier
	log       *slog.Logger
}

func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, log: logger}
}

func (m *Multi) Notify(ctx context.Context, n Notification) error {
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			m.log.Warn("notification delivery failed", "error", err)
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Console logs notifications instead of displaying them.
type Console struct {
	log *slog.Logger
}

func NewConsole(logger *slog.Logger) *Console {
	return &Console{log: logger}
}

func (c *Console) Notify(ctx context.Context, n Notification) error {
	c.log.Info("action", "kind", n.Kind, "contact", n.Contact, "body", n.Body)
	return nil
}

func (c *Console) Close() error { return nil }

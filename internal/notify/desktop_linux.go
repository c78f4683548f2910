//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"pryd/internal/brain"
)

const (
	notifyBusName    = "org.freedesktop.Notifications"
	notifyObjectPath = "/org/freedesktop/Notifications"
	notifyMethod     = "org.freedesktop.Notifications.Notify"
)

// Desktop sends freedesktop notifications over the session bus.
type Desktop struct {
	conn     *dbus.Conn
	expireMs int32
}

// NewDesktop connects to the session bus. Headless sessions fail here;
// callers fall back to the console notifier.
func NewDesktop(timeoutMs int) (*Desktop, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("notify: session bus: %w", err)
	}
	if timeoutMs <= 0 {
		timeoutMs = 8000
	}
	return &Desktop{conn: conn, expireMs: int32(timeoutMs)}, nil
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	obj := d.conn.Object(notifyBusName, notifyObjectPath)

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyFor(n.Kind)),
	}

	expireMs := d.expireMs
	if n.Kind == brain.ActionWarn {
		expireMs = 0 // sticky until dismissed
	}

	call := obj.CallWithContext(ctx, notifyMethod, 0,
		"pryd",            // app_name
		uint32(0),         // replaces_id
		"",                // app_icon
		n.Title(),         // summary
		n.Body,            // body
		[]string{},        // actions
		hints,             // hints
		expireMs,          // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}

func (d *Desktop) Close() error {
	return d.conn.Close()
}

//go:build !linux

package notify

import (
	"context"
	"errors"
)

// Desktop is unavailable off Linux; the daemon uses the console
// notifier there.
type Desktop struct{}

var errUnsupported = errors.New("notify: desktop notifications not supported on this platform")

func NewDesktop(timeoutMs int) (*Desktop, error) {
	return nil, errUnsupported
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	return errUnsupported
}

func (d *Desktop) Close() error { return nil }

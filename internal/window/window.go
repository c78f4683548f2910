// Package window resolves and captures the target chat application
// window.
//
// A Handle is a lookup key, not a lease: the OS window behind it can
// vanish or be recreated at any moment, so the monitor loop re-resolves
// every cycle and treats a handle as valid only between a successful
// resolve and the next failure.
package window

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// Handle references a resolved top-level window.
type Handle struct {
	// HWND is the OS window handle value.
	HWND uintptr

	// Title and Class as reported at resolve time.
	Title string
	Class string

	// Rect is the window bounding rectangle in screen coordinates.
	Rect image.Rectangle

	// Foreground reports whether the window had focus at resolve time.
	Foreground bool
}

// Frame is one captured bitmap. It is immutable after creation and
// owned by a single polling cycle.
type Frame struct {
	// Img holds the captured pixels.
	Img *image.RGBA

	// Rect is the window rectangle the frame was taken from.
	Rect image.Rectangle

	// CapturedAt is the capture timestamp.
	CapturedAt time.Time
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Img.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Img.Bounds().Dy() }

// Target describes the window to look for.
type Target struct {
	// Title and Class are matched against top-level windows.
	// Resolution tries class+title, then class alone, then title alone.
	Title string
	Class string
}

// Source resolves and captures windows. Implementations are
// platform-specific; tests use scripted fakes.
type Source interface {
	// Resolve finds the target window. Returns ErrWindowGone when no
	// candidate window exists.
	Resolve(ctx context.Context, target Target) (Handle, error)

	// Capture grabs the window's current pixels. Returns
	// ErrWindowMinimized when the window is not capturable and
	// ErrWindowGone when the handle no longer resolves.
	Capture(ctx context.Context, h Handle) (*Frame, error)
}

var (
	// ErrWindowGone means the handle no longer resolves to a visible window.
	ErrWindowGone = errors.New("window: gone")

	// ErrWindowMinimized means the window exists but cannot be captured.
	ErrWindowMinimized = errors.New("window: minimized")

	// ErrNotSupported means no frame source exists for this platform.
	ErrNotSupported = errors.New("window: capture not supported on this platform")
)

// CaptureError wraps an OS-level capture failure.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("window: capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// minWindowDim filters out tool windows and splash screens during
// resolution; anything under 200x200 is noise.
const minWindowDim = 200

// plausible reports whether a rectangle looks like a real chat window.
func plausible(r image.Rectangle) bool {
	return r.Dx() >= minWindowDim && r.Dy() >= minWindowDim
}

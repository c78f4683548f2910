// Package monitor drives the capture pipeline: resolve the chat
// window, capture a frame, segment it, read it, and hand newly seen
// messages to the evaluation side.
//
// The loop is a small state machine. Searching polls for a window to
// latch onto; Tracking polls it at a fixed cadence; Degraded keeps the
// handle but backs off exponentially while capture or layout keeps
// failing. All per-cycle failures stay inside the loop and surface
// only as state transitions and metrics.
package monitor

import (
	"context"
	"image"
	"time"

	"pryd/internal/layout"
	"pryd/internal/ocr"
	"pryd/internal/transcript"
	"pryd/internal/window"
)

// State is the loop's operating mode.
type State int

const (
	// StateSearching means no valid window handle is held.
	StateSearching State = iota
	// StateTracking means the window is being polled normally.
	StateTracking
	// StateDegraded means the handle is held but recent cycles failed.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateTracking:
		return "tracking"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Config tunes polling cadence and failure handling.
type Config struct {
	// Interval is the poll period while Tracking.
	Interval time.Duration

	// Backoff governs the poll period while Searching or Degraded.
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffMax    time.Duration

	// DegradeAfter is how many consecutive failed cycles flip
	// Tracking into Degraded.
	DegradeAfter int

	// CaptureTimeout bounds one capture call.
	CaptureTimeout time.Duration

	// ContextWindow is how many trailing messages accompany a delta.
	ContextWindow int
}

// Classifier segments frames. Satisfied by layout.Classifier.
type Classifier interface {
	Classify(frame *window.Frame, hint *layout.Hint) (layout.Layout, *layout.Hint)
}

// Extractor reads text out of a frame region. Satisfied by
// ocr.Extractor.
type Extractor interface {
	ExtractRegion(ctx context.Context, img *image.RGBA, bounds image.Rectangle) ([]ocr.TextLine, error)
}

// Delta is a batch of newly observed messages plus trailing context,
// handed to the evaluation side.
type Delta struct {
	Contact  string
	Messages []transcript.Message
	Context  []transcript.Message
}

// Snapshot is a read-only view of loop state for status reporting.
type Snapshot struct {
	State            State
	Contact          string
	TrackedMessages  int
	ConsecutiveFails int
	NextInterval     time.Duration
}

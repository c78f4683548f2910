package window

import (
	"errors"
	"image"
	"testing"
)

func TestPlausible(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
		want bool
	}{
		{"typical chat window", image.Rect(100, 100, 1100, 800), true},
		{"exactly at the floor", image.Rect(0, 0, 200, 200), true},
		{"tooltip sized", image.Rect(0, 0, 180, 40), false},
		{"thin strip", image.Rect(0, 0, 1200, 30), false},
		{"empty", image.Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plausible(tt.rect); got != tt.want {
				t.Errorf("plausible(%v) = %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestFrameDimensions(t *testing.T) {
	f := &Frame{
		Img:  image.NewRGBA(image.Rect(0, 0, 640, 480)),
		Rect: image.Rect(10, 20, 650, 500),
	}
	if f.Width() != 640 {
		t.Errorf("Width() = %d, want 640", f.Width())
	}
	if f.Height() != 480 {
		t.Errorf("Height() = %d, want 480", f.Height())
	}
}

func TestCaptureErrorUnwrap(t *testing.T) {
	inner := errors.New("device context busy")
	err := &CaptureError{Op: "BitBlt", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("CaptureError should unwrap to the inner error")
	}
	if err.Error() == "" {
		t.Error("CaptureError should format a message")
	}
}

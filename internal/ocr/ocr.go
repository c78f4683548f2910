// Package ocr turns frame regions into positioned text lines.
//
// Recognition itself is delegated to an Engine: either the HTTP sidecar
// (a local PaddleOCR service) or a tesseract subprocess. The extractor
// crops the region, runs the engine, filters out low-confidence and
// tiny boxes, and maps coordinates back into frame space.
package ocr

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"
)

// TextLine is one recognized line with its bounding box in frame
// coordinates.
type TextLine struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// Engine performs recognition on a cropped image. Boxes in the result
// are relative to the crop origin.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img *image.RGBA) ([]TextLine, error)
}

// Config selects and tunes the recognition engine.
type Config struct {
	// Engine is "http" or "tesseract".
	Engine string

	// Endpoint is the sidecar URL for the http engine.
	Endpoint string

	// TesseractPath overrides the tesseract binary location.
	TesseractPath string

	// Languages passed to tesseract, e.g. "chi_sim+eng".
	Languages string

	Timeout time.Duration

	// MinConfidence drops lines the engine is unsure about.
	MinConfidence float64

	// MinBoxArea drops specks and icon fragments.
	MinBoxArea int
}

// NewEngine builds the configured engine.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Engine {
	case "http":
		return newHTTPEngine(cfg), nil
	case "tesseract":
		return newTesseractEngine(cfg), nil
	default:
		return nil, fmt.Errorf("ocr: unknown engine %q", cfg.Engine)
	}
}

// Extractor runs an engine over frame regions.
type Extractor struct {
	engine Engine
	cfg    Config
}

func NewExtractor(engine Engine, cfg Config) *Extractor {
	return &Extractor{engine: engine, cfg: cfg}
}

// ExtractRegion recognizes text inside bounds of the given frame image.
// Returned boxes are in frame coordinates, sorted top to bottom then
// left to right. An empty result is normal for quiet regions.
func (e *Extractor) ExtractRegion(ctx context.Context, img *image.RGBA, bounds image.Rectangle) ([]TextLine, error) {
	crop := bounds.Intersect(img.Bounds())
	if crop.Empty() {
		return nil, nil
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	sub, ok := img.SubImage(crop).(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("ocr: cannot crop frame")
	}

	lines, err := e.engine.Recognize(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("ocr: %s: %w", e.engine.Name(), err)
	}

	out := make([]TextLine, 0, len(lines))
	for _, l := range lines {
		if l.Confidence < e.cfg.MinConfidence {
			continue
		}
		if l.Box.Dx()*l.Box.Dy() < e.cfg.MinBoxArea {
			continue
		}
		l.Box = l.Box.Add(crop.Min)
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Box.Min.Y != out[j].Box.Min.Y {
			return out[i].Box.Min.Y < out[j].Box.Min.Y
		}
		return out[i].Box.Min.X < out[j].Box.Min.X
	})
	return out, nil
}

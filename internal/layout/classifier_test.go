package layout

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"pryd/internal/window"
)

func testConfig() Config {
	return Config{
		MinConfidence:     0.6,
		EdgeThreshold:     8.0,
		ResizeTolerancePx: 5,
		Fallback: Fallback{
			ChatListPct:   0.30,
			MemberPanePct: 0.20,
			TitleBarPct:   0.06,
			InputBarPct:   0.08,
		},
	}
}

// renderChatFrame draws a stylized messenger window: a darker chat list
// pane on the left, a separator line under the title bar, a separator
// above the compose box, and optionally a darker member panel on the
// right. Geometry for a 1200x800 frame: divider at x=360, title line
// at y=54, input line at y=640, member panel from x=960.
func renderChatFrame(w, h int, memberPanel bool) *window.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := color.RGBA{235, 235, 235, 255}
	pane := color.RGBA{200, 200, 200, 255}
	line := color.RGBA{40, 40, 40, 255}
	panel := color.RGBA{205, 205, 205, 255}

	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	clX := int(0.30 * float64(w))
	draw.Draw(img, image.Rect(0, 0, clX, h), image.NewUniform(pane), image.Point{}, draw.Src)

	memberX := w
	if memberPanel {
		memberX = int(0.80 * float64(w))
		draw.Draw(img, image.Rect(memberX, 0, w, h), image.NewUniform(panel), image.Point{}, draw.Src)
	}

	titleY := int(0.0675 * float64(h))
	draw.Draw(img, image.Rect(clX+5, titleY, memberX-5, titleY+2), image.NewUniform(line), image.Point{}, draw.Src)

	inputY := int(0.80 * float64(h))
	draw.Draw(img, image.Rect(clX+10, inputY, memberX-10, inputY+2), image.NewUniform(line), image.Point{}, draw.Src)

	return &window.Frame{
		Img:        img,
		Rect:       image.Rect(0, 0, w, h),
		CapturedAt: time.Now(),
	}
}

func flatFrame(w, h int) *window.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{220, 220, 220, 255}), image.Point{}, draw.Src)
	return &window.Frame{Img: img, Rect: image.Rect(0, 0, w, h), CapturedAt: time.Now()}
}

func TestSegmentFullWindow(t *testing.T) {
	c := New(testConfig())
	frame := renderChatFrame(1200, 800, true)

	layout, hint := c.Classify(frame, nil)
	if hint == nil {
		t.Fatal("expected a hint from full segmentation")
	}

	for _, name := range []RegionName{RegionTitle, RegionTranscript, RegionInput, RegionMemberPanel} {
		if !layout.Has(name) {
			t.Fatalf("region %q missing from layout %v", name, layout)
		}
	}

	if hint.ChatListX < 355 || hint.ChatListX > 365 {
		t.Errorf("chat list divider at %d, expected near 360", hint.ChatListX)
	}
	if hint.TitleY < 40 || hint.TitleY > 80 {
		t.Errorf("title boundary at %d, expected in [40, 80]", hint.TitleY)
	}
	if hint.InputY < 625 || hint.InputY > 665 {
		t.Errorf("input boundary at %d, expected near 640", hint.InputY)
	}
	if hint.MemberX < 930 || hint.MemberX > 980 {
		t.Errorf("member panel at %d, expected near 960", hint.MemberX)
	}

	tr := layout[RegionTranscript]
	if tr.Bounds.Min.Y != hint.TitleY || tr.Bounds.Max.Y != hint.InputY {
		t.Errorf("transcript bounds %v not between title %d and input %d", tr.Bounds, hint.TitleY, hint.InputY)
	}
	if tr.Confidence < 0.6 {
		t.Errorf("transcript confidence %.2f below floor", tr.Confidence)
	}
	if tr.Heuristic != "edge-scan" {
		t.Errorf("transcript heuristic = %q, want edge-scan", tr.Heuristic)
	}

	if mp := layout[RegionMemberPanel]; mp.Heuristic != "band-persistence" {
		t.Errorf("member panel heuristic = %q, want band-persistence", mp.Heuristic)
	}
}

func TestSegmentWithoutMemberPanel(t *testing.T) {
	c := New(testConfig())
	frame := renderChatFrame(1200, 800, false)

	layout, hint := c.Classify(frame, nil)
	if hint == nil {
		t.Fatal("expected a hint")
	}
	if layout.Has(RegionMemberPanel) {
		t.Error("member panel reported for a private chat frame")
	}
	if hint.MemberX != 0 {
		t.Errorf("hint.MemberX = %d, want 0", hint.MemberX)
	}
	for _, name := range []RegionName{RegionTitle, RegionTranscript, RegionInput} {
		if !layout.Has(name) {
			t.Errorf("region %q missing; member panel absence must not suppress it", name)
		}
	}
}

func TestFlatFrameYieldsEmptyLayout(t *testing.T) {
	c := New(testConfig())

	layout, hint := c.Classify(flatFrame(1200, 800), nil)
	if len(layout) != 0 {
		t.Errorf("expected empty layout for featureless frame, got %v", layout)
	}
	if hint != nil {
		t.Error("expected nil hint when nothing cleared the confidence floor")
	}
}

func TestHintReuse(t *testing.T) {
	c := New(testConfig())
	frame := renderChatFrame(1200, 800, false)

	_, hint := c.Classify(frame, nil)
	if hint == nil {
		t.Fatal("expected a hint")
	}
	v1 := hint.Version

	layout2, hint2 := c.Classify(frame, hint)
	if hint2 != hint {
		t.Error("stable frame should reuse the cached hint")
	}
	if hint2.Version != v1 {
		t.Errorf("hint version changed %d -> %d on the cheap path", v1, hint2.Version)
	}
	if !layout2.Has(RegionTranscript) {
		t.Error("cached layout lost the transcript region")
	}
}

func TestHintInvalidatedByResize(t *testing.T) {
	c := New(testConfig())

	_, hint := c.Classify(renderChatFrame(1200, 800, false), nil)
	if hint == nil {
		t.Fatal("expected a hint")
	}

	resized := renderChatFrame(1280, 800, false)
	_, hint2 := c.Classify(resized, hint)
	if hint2 == nil {
		t.Fatal("expected re-segmentation to produce a hint")
	}
	if hint2.Version == hint.Version {
		t.Error("resize past tolerance should bump the hint version")
	}
	if hint2.FrameW != 1280 {
		t.Errorf("hint.FrameW = %d, want 1280", hint2.FrameW)
	}
}

func TestHintSurvivesSmallJitter(t *testing.T) {
	c := New(testConfig())
	frame := renderChatFrame(1200, 800, false)

	_, hint := c.Classify(frame, nil)
	if hint == nil {
		t.Fatal("expected a hint")
	}

	// 3 px drift is inside the default 5 px tolerance.
	jittered := renderChatFrame(1203, 800, false)
	_, hint2 := c.Classify(jittered, hint)
	if hint2 != hint {
		t.Error("jitter within tolerance should keep the cached hint")
	}
}

func TestPickRegion(t *testing.T) {
	small := Region{Name: RegionTitle, Bounds: image.Rect(0, 0, 10, 10), Confidence: 0.7}
	big := Region{Name: RegionTitle, Bounds: image.Rect(0, 0, 100, 100), Confidence: 0.7}
	weak := Region{Name: RegionTitle, Bounds: image.Rect(0, 0, 5, 5), Confidence: 0.3}

	if got := pickRegion(weak, big); got.Confidence != 0.7 {
		t.Errorf("higher confidence should win, got %.2f", got.Confidence)
	}
	if got := pickRegion(big, small); area(got.Bounds) != 100 {
		t.Errorf("tie should prefer the smaller rectangle, got area %d", area(got.Bounds))
	}
}

package transcript

import (
	"image"
	"testing"
	"time"

	"pryd/internal/ocr"
)

var region = image.Rect(300, 60, 1100, 640)

// line places OCR text at a horizontal band of the transcript region:
// rel is the center position as a fraction of region width.
func line(text string, rel float64, y int) ocr.TextLine {
	w := 160
	cx := region.Min.X + int(rel*float64(region.Dx()))
	return ocr.TextLine{
		Text:       text,
		Box:        image.Rect(cx-w/2, y, cx+w/2, y+22),
		Confidence: 0.95,
	}
}

func TestNormalizeClassifiesBySide(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	now := time.Now()

	msgs := n.Normalize([]ocr.TextLine{
		line("在吗？", 0.2, 100),
		line("在的，怎么了", 0.8, 160),
		line("对方撤回了一条消息", 0.5, 220),
		line("某段居中的普通文本", 0.5, 280),
	}, region, now)

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4: %+v", len(msgs), msgs)
	}
	wantSenders := []Sender{SenderOther, SenderSelf, SenderSystem, SenderUnknown}
	for i, want := range wantSenders {
		if msgs[i].Sender != want {
			t.Errorf("message %d sender = %q, want %q", i, msgs[i].Sender, want)
		}
	}
	for _, m := range msgs {
		if m.Fingerprint == "" {
			t.Errorf("message %q has no fingerprint", m.Text)
		}
		if !m.ObservedAt.Equal(now) {
			t.Errorf("message %q timestamp not propagated", m.Text)
		}
	}
}

func TestNormalizeMergesBubbleLines(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	msgs := n.Normalize([]ocr.TextLine{
		line("今天晚上一起吃饭吗", 0.2, 100),
		line("我知道一家新开的火锅店", 0.2, 126), // 4px gap, same bubble
		line("好啊好啊", 0.8, 200),          // different sender
		line("那就这么定了", 0.2, 300),       // same sender, far below
	}, region, time.Now())

	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3: %+v", len(msgs), msgs)
	}
	if msgs[0].Text != "今天晚上一起吃饭吗\n我知道一家新开的火锅店" {
		t.Errorf("bubble not merged: %q", msgs[0].Text)
	}
	if msgs[0].Box.Max.Y < 148 {
		t.Errorf("merged box %v does not cover both lines", msgs[0].Box)
	}
	if msgs[1].Text != "好啊好啊" || msgs[2].Text != "那就这么定了" {
		t.Errorf("unexpected split: %+v", msgs)
	}
}

func TestNormalizeFiltersNoise(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())

	msgs := n.Normalize([]ocr.TextLine{
		line("14:32", 0.5, 80),      // timestamp marker
		line("微信", 0.2, 120),       // UI chrome
		line("...", 0.2, 160),       // symbols only
		line("好", 0.2, 200),        // below min length
		line("收到，马上到", 0.2, 240),
	}, region, time.Now())

	if len(msgs) != 1 || msgs[0].Text != "收到，马上到" {
		t.Fatalf("noise not filtered: %+v", msgs)
	}
}

func TestDifferNoDuplicateEmission(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	d := NewDiffer(500)

	first := n.Normalize([]ocr.TextLine{
		line("在吗？", 0.2, 100),
		line("在的", 0.8, 160),
	}, region, time.Now())

	if got := d.Delta(first); len(got) != 2 {
		t.Fatalf("first delta: got %d, want 2", len(got))
	}
	// Same snapshot again: idempotent.
	if got := d.Delta(first); len(got) != 0 {
		t.Fatalf("repeat delta emitted %d messages", len(got))
	}

	// One new message appended, older ones re-OCRed identically.
	second := n.Normalize([]ocr.TextLine{
		line("在吗？", 0.2, 60),
		line("在的", 0.8, 120),
		line("晚上有空吗", 0.2, 180),
	}, region, time.Now())

	got := d.Delta(second)
	if len(got) != 1 || got[0].Text != "晚上有空吗" {
		t.Fatalf("delta = %+v, want just the appended message", got)
	}
}

func TestDifferShrinkingTranscriptSafe(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	d := NewDiffer(500)

	full := n.Normalize([]ocr.TextLine{
		line("第一条消息", 0.2, 60),
		line("第二条消息", 0.2, 160),
		line("第三条消息", 0.2, 260),
	}, region, time.Now())
	d.Delta(full)

	// Scroll hides the first message; nothing new appears.
	shrunk := full[1:]
	if got := d.Delta(shrunk); len(got) != 0 {
		t.Fatalf("shrinking transcript emitted %d messages", len(got))
	}
}

func TestDifferEvictionBound(t *testing.T) {
	d := NewDiffer(3)
	msgs := []Message{
		{Fingerprint: "a"}, {Fingerprint: "b"}, {Fingerprint: "c"}, {Fingerprint: "d"},
	}
	d.Delta(msgs)
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want cap 3", d.Len())
	}
	// "a" was evicted and may be re-emitted; "d" must not be.
	again := d.Delta([]Message{{Fingerprint: "a"}, {Fingerprint: "d"}})
	if len(again) != 1 || again[0].Fingerprint != "a" {
		t.Fatalf("unexpected re-emission: %+v", again)
	}
}

func TestDifferReset(t *testing.T) {
	d := NewDiffer(10)
	d.Delta([]Message{{Fingerprint: "x"}})
	d.Reset()
	if got := d.Delta([]Message{{Fingerprint: "x"}}); len(got) != 1 {
		t.Error("reset should forget previous fingerprints")
	}
}

func TestContactName(t *testing.T) {
	tests := []struct {
		name  string
		lines []ocr.TextLine
		want  string
	}{
		{
			"plain contact",
			[]ocr.TextLine{
				{Text: "张伟", Box: image.Rect(400, 10, 520, 40)},
			},
			"张伟",
		},
		{
			"group with member count",
			[]ocr.TextLine{
				{Text: "周末爬山群 (23)", Box: image.Rect(400, 10, 640, 40)},
			},
			"周末爬山群",
		},
		{
			"picks largest over chrome",
			[]ocr.TextLine{
				{Text: "搜索", Box: image.Rect(900, 10, 960, 30)},
				{Text: "李娜", Box: image.Rect(400, 8, 540, 42)},
			},
			"李娜",
		},
		{
			"empty title bar",
			nil,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContactName(tt.lines); got != tt.want {
				t.Errorf("ContactName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprintIgnoresPunctuationJitter(t *testing.T) {
	a := fingerprintMessage(SenderOther, "今晚吃火锅？")
	b := fingerprintMessage(SenderOther, "今晚吃火锅?")
	c := fingerprintMessage(SenderOther, "今晚 吃火锅")
	if a != b || a != c {
		t.Error("punctuation and spacing variants should hash identically")
	}

	d := fingerprintMessage(SenderOther, "今晚吃烧烤")
	if a == d {
		t.Error("different content should hash differently")
	}
}

func TestSnapshotFingerprint(t *testing.T) {
	a := &Snapshot{Contact: "张伟", Messages: []Message{
		{Sender: SenderOther, Text: "在吗"},
	}}
	b := &Snapshot{Contact: "张伟", Messages: []Message{
		{Sender: SenderOther, Text: "在吗"},
	}}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical snapshots should hash identically")
	}

	c := &Snapshot{Contact: "李娜", Messages: a.Messages}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("contact change should alter the fingerprint")
	}

	d := &Snapshot{Contact: "张伟", Messages: []Message{
		{Sender: SenderSelf, Text: "在吗"},
	}}
	if a.Fingerprint() == d.Fingerprint() {
		t.Error("sender change should alter the fingerprint")
	}
}

package transcript

import (
	"image"
	"strings"
	"time"
	"unicode/utf8"

	"pryd/internal/ocr"
)

// NormalizerConfig tunes bubble classification and merging.
type NormalizerConfig struct {
	// OtherAlignPct and SelfAlignPct split the region into alignment
	// bands: bubble centers left of the first are the peer's, right of
	// the second are the user's own, between them is system text.
	OtherAlignPct float64
	SelfAlignPct  float64

	// MergeGapRatio merges consecutive same-sender lines whose
	// vertical gap is under this multiple of the line height.
	MergeGapRatio float64

	// MinMessageLen drops fragments shorter than this many runes.
	MinMessageLen int
}

func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		OtherAlignPct: 0.35,
		SelfAlignPct:  0.65,
		MergeGapRatio: 1.5,
		MinMessageLen: 2,
	}
}

// Strategy is any normalizer variant. Bubble heuristics differ across
// chat clients and themes, so the monitor loop depends on this
// interface rather than one concrete implementation.
type Strategy interface {
	Normalize(lines []ocr.TextLine, region image.Rectangle, observedAt time.Time) []Message
}

// Normalizer converts OCR lines from the transcript region into
// messages using alignment-band classification and bubble merging.
type Normalizer struct {
	cfg NormalizerConfig
}

var _ Strategy = (*Normalizer)(nil)

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize classifies, filters, and merges OCR lines. Lines must be
// in top-to-bottom order; region is the transcript bounds the
// alignment bands are measured against.
func (n *Normalizer) Normalize(lines []ocr.TextLine, region image.Rectangle, observedAt time.Time) []Message {
	if region.Dx() <= 0 {
		return nil
	}

	var msgs []Message
	for _, l := range lines {
		text := normalizeText(l.Text)
		if text == "" {
			continue
		}
		if _, noise := uiNoise[text]; noise {
			continue
		}

		sender := n.classify(l.Box, region)
		if sender == SenderUnknown {
			if looksLikeTimestamp(text) {
				continue
			}
			if isSystemNotice(text) {
				sender = SenderSystem
			}
		}
		if !isMeaningful(text) {
			continue
		}

		if len(msgs) > 0 && n.sameBubble(&msgs[len(msgs)-1], sender, l.Box) {
			last := &msgs[len(msgs)-1]
			last.Text += "\n" + text
			last.Box = last.Box.Union(l.Box)
			continue
		}

		msgs = append(msgs, Message{
			Sender:     sender,
			Text:       text,
			Box:        l.Box,
			ObservedAt: observedAt,
		})
	}

	out := msgs[:0]
	for _, m := range msgs {
		if runeLen(m.Text) < n.cfg.MinMessageLen {
			continue
		}
		m.Fingerprint = fingerprintMessage(m.Sender, m.Text)
		out = append(out, m)
	}
	return out
}

// classify assigns a sender from the bubble center's horizontal
// position within the region.
func (n *Normalizer) classify(box, region image.Rectangle) Sender {
	center := float64(box.Min.X+box.Max.X) / 2
	rel := (center - float64(region.Min.X)) / float64(region.Dx())

	switch {
	case rel < n.cfg.OtherAlignPct:
		return SenderOther
	case rel > n.cfg.SelfAlignPct:
		return SenderSelf
	default:
		return SenderUnknown
	}
}

// sameBubble reports whether a line continues the previous message:
// same sender and a vertical gap under MergeGapRatio line heights.
// System and unknown lines never merge; each notice stands alone.
func (n *Normalizer) sameBubble(prev *Message, sender Sender, box image.Rectangle) bool {
	if prev.Sender != sender || sender == SenderSystem || sender == SenderUnknown {
		return false
	}

	gap := float64(box.Min.Y - prev.Box.Max.Y)
	if gap < 0 {
		gap = 0
	}
	lineH := float64(box.Dy())
	if lineH <= 0 {
		return false
	}
	return gap < n.cfg.MergeGapRatio*lineH
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Package transcript turns positioned OCR lines into chat messages and
// detects which of them are new.
//
// The normalizer assigns each line a sender from its horizontal
// alignment, merges adjacent lines of one bubble, filters UI noise, and
// fingerprints the result. The differ remembers fingerprints across
// cycles so scrolling and re-renders never emit a message twice.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"time"
)

// Sender classifies who a message came from, inferred from bubble
// alignment within the transcript region.
type Sender string

const (
	// SenderOther is a left-aligned bubble from the conversation peer.
	SenderOther Sender = "other"
	// SenderSelf is a right-aligned bubble from the account owner.
	SenderSelf Sender = "self"
	// SenderSystem is a recognized client notice: recalls, joins,
	// transfer receipts.
	SenderSystem Sender = "system"
	// SenderUnknown is centered or ambiguous text that matches no
	// known notice pattern. Alignment alone cannot always decide, so
	// every consumer must handle this value.
	SenderUnknown Sender = "unknown"
)

// Message is one normalized chat bubble.
type Message struct {
	Sender      Sender
	Text        string
	Fingerprint string

	// Box is the merged bubble bounds in frame coordinates.
	Box image.Rectangle

	ObservedAt time.Time
}

// Snapshot is everything read from one frame.
type Snapshot struct {
	Contact    string
	Messages   []Message
	CapturedAt time.Time
}

// fingerprintWindow bounds how much of the tail identifies a snapshot.
const fingerprintWindow = 20

// Fingerprint identifies the visible conversation state by its last
// messages. Two frames showing the same tail hash identically, so the
// monitor can skip unchanged cycles cheaply.
func (s *Snapshot) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Contact))

	msgs := s.Messages
	if len(msgs) > fingerprintWindow {
		msgs = msgs[len(msgs)-fingerprintWindow:]
	}
	for _, m := range msgs {
		h.Write([]byte{0})
		h.Write([]byte(m.Sender))
		h.Write([]byte{0})
		h.Write([]byte(m.Text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// fingerprintMessage keys dedupe on the canonical text, not the raw
// OCR output. Recognition flickers on punctuation and spacing between
// frames far more than on letters, so those never enter the hash.
func fingerprintMessage(sender Sender, text string) string {
	h := sha256.New()
	h.Write([]byte(sender))
	h.Write([]byte{0})
	h.Write([]byte(canonicalText(text)))
	return hex.EncodeToString(h.Sum(nil))
}

package transcript

// Differ tracks message fingerprints across cycles and yields only
// messages not seen before. Scroll-back, re-renders, and shrinking
// transcripts (message recall, window scroll) therefore never re-emit.
//
// Memory is bounded: once the set exceeds its cap the oldest
// fingerprints are forgotten in insertion order. The cap should
// comfortably exceed the number of bubbles a window can show.
type Differ struct {
	seen  map[string]struct{}
	order []string
	cap   int
}

// NewDiffer creates a differ remembering up to cap fingerprints.
func NewDiffer(cap int) *Differ {
	if cap < 1 {
		cap = 1
	}
	return &Differ{
		seen: make(map[string]struct{}, cap),
		cap:  cap,
	}
}

// Delta returns the messages whose fingerprints are new, in snapshot
// order, and marks them seen. Calling Delta twice with the same
// snapshot returns nothing the second time.
func (d *Differ) Delta(msgs []Message) []Message {
	var fresh []Message
	for _, m := range msgs {
		if _, ok := d.seen[m.Fingerprint]; ok {
			continue
		}
		d.remember(m.Fingerprint)
		fresh = append(fresh, m)
	}
	return fresh
}

// Reset clears history, used when the tracked conversation changes so
// one contact's messages never mask another's.
func (d *Differ) Reset() {
	d.seen = make(map[string]struct{}, d.cap)
	d.order = d.order[:0]
}

// Len reports how many fingerprints are currently remembered.
func (d *Differ) Len() int {
	return len(d.seen)
}

func (d *Differ) remember(fp string) {
	if len(d.order) >= d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[fp] = struct{}{}
	d.order = append(d.order, fp)
}

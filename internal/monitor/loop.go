package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"pryd/internal/layout"
	"pryd/internal/metrics"
	"pryd/internal/transcript"
	"pryd/internal/window"
)

// Monitor owns the polling loop. All mutable loop state is written by
// the loop goroutine only; Status takes a locked copy for readers.
type Monitor struct {
	cfg        Config
	source     window.Source
	targets    []window.Target
	classifier Classifier
	extractor  Extractor
	normalizer transcript.Strategy
	differ     *transcript.Differ
	onDelta    func(Delta)
	met        *metrics.PrydMetrics
	log        *slog.Logger

	// Loop-owned state.
	state       State
	target      window.Target
	hint        *layout.Hint
	retained    *transcript.Snapshot
	contact     string
	lastFP      string
	failures    int
	backoff     time.Duration

	mu         sync.Mutex
	status     Snapshot
	pendingCfg *Config
}

// New assembles a monitor. onDelta runs on the loop goroutine and must
// not block; hand work to a worker.
func New(
	cfg Config,
	source window.Source,
	targets []window.Target,
	classifier Classifier,
	extractor Extractor,
	normalizer transcript.Strategy,
	onDelta func(Delta),
	met *metrics.PrydMetrics,
	logger *slog.Logger,
) *Monitor {
	if met == nil {
		met = metrics.NewPrydMetrics(nil)
	}
	return &Monitor{
		cfg:        cfg,
		source:     source,
		targets:    targets,
		classifier: classifier,
		extractor:  extractor,
		normalizer: normalizer,
		differ:     transcript.NewDiffer(2000),
		onDelta:    onDelta,
		met:        met,
		log:        logger,
		state:      StateSearching,
	}
}

// Status returns a point-in-time view of the loop.
func (m *Monitor) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// UpdateConfig swaps the polling and backoff tunables. The change
// takes effect at the next cycle boundary.
func (m *Monitor) UpdateConfig(cfg Config) {
	m.mu.Lock()
	m.pendingCfg = &cfg
	m.mu.Unlock()
}

func (m *Monitor) applyPendingConfig() {
	m.mu.Lock()
	pending := m.pendingCfg
	m.pendingCfg = nil
	m.mu.Unlock()

	if pending == nil {
		return
	}
	m.cfg = *pending
	if m.backoff > m.cfg.BackoffMax {
		m.backoff = m.cfg.BackoffMax
	}
	m.log.Info("monitor tunables updated",
		"interval", m.cfg.Interval.String(), "backoff_max", m.cfg.BackoffMax.String())
}

// Run polls until the context is canceled. Cancellation is honored
// between cycles so an in-flight frame is never torn.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		m.applyPendingConfig()

		start := time.Now()
		if m.state == StateSearching {
			m.search(ctx)
		} else {
			m.cycle(ctx)
		}
		m.met.CyclesTotal.Inc()
		m.met.CycleDuration.ObserveDuration(time.Since(start))

		next := m.nextInterval()
		m.publishStatus(next)
		timer.Reset(next)
	}
}

// search probes each configured target until one resolves.
func (m *Monitor) search(ctx context.Context) {
	for _, target := range m.targets {
		handle, err := m.source.Resolve(ctx, target)
		if err != nil {
			continue
		}
		m.log.Info("window acquired",
			"title", handle.Title, "class", handle.Class, "rect", handle.Rect.String())
		m.target = target
		m.toState(StateTracking)
		m.resetFailures()
		return
	}
	m.noteFailure()
}

// cycle runs one full pipeline pass. Loop state (hint, retained
// snapshot, contact) is updated only after the pass succeeds; any
// failure leaves it untouched.
func (m *Monitor) cycle(ctx context.Context) {
	// Handles go stale whenever the app recreates its window, so
	// every cycle starts from a fresh resolve.
	handle, err := m.source.Resolve(ctx, m.target)
	if err != nil {
		m.loseWindow(err)
		return
	}

	captureCtx, cancel := context.WithTimeout(ctx, m.cfg.CaptureTimeout)
	frame, err := m.source.Capture(captureCtx, handle)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, window.ErrWindowGone):
			m.loseWindow(err)
		case errors.Is(err, window.ErrWindowMinimized):
			m.log.Debug("window minimized")
			m.noteFailure()
		default:
			m.met.CaptureFailures.Inc()
			m.log.Warn("capture failed", "error", err)
			m.noteFailure()
		}
		return
	}

	regions, hint := m.classifier.Classify(frame, m.hint)
	if hint != nil && m.hint != nil && hint.Version == m.hint.Version {
		m.met.LayoutCacheHits.Inc()
	}
	if len(regions) == 0 {
		m.met.LayoutUnresolved.Inc()
		m.log.Debug("layout unresolved this cycle")
		m.noteFailure()
		return
	}

	contact := m.contact
	if title, ok := regions[layout.RegionTitle]; ok {
		lines, err := m.extractor.ExtractRegion(ctx, frame.Img, title.Bounds)
		if err != nil {
			m.log.Debug("title extraction failed", "error", err)
		} else if name := transcript.ContactName(lines); name != "" {
			contact = name
		}
	}

	tr, ok := regions[layout.RegionTranscript]
	if !ok {
		// Partial layouts are usable for contact tracking but the
		// cycle has not succeeded until the transcript resolves.
		m.noteFailure()
		return
	}

	ocrStart := time.Now()
	lines, err := m.extractor.ExtractRegion(ctx, frame.Img, tr.Bounds)
	m.met.OCRDuration.ObserveDuration(time.Since(ocrStart))
	if err != nil {
		m.log.Warn("transcript extraction failed", "error", err)
		m.noteFailure()
		return
	}

	if contact != m.contact {
		m.log.Info("conversation changed", "from", m.contact, "to", contact)
		m.differ.Reset()
		m.lastFP = ""
	}

	msgs := m.normalizer.Normalize(lines, tr.Bounds, frame.CapturedAt)
	snap := &transcript.Snapshot{
		Contact:    contact,
		Messages:   msgs,
		CapturedAt: frame.CapturedAt,
	}

	// Unchanged tail means nothing to diff or forward.
	fp := snap.Fingerprint()
	if fp != m.lastFP {
		delta := m.differ.Delta(msgs)
		if len(delta) > 0 {
			m.met.MessagesEmitted.Add(uint64(len(delta)))
			m.onDelta(Delta{
				Contact:  contact,
				Messages: delta,
				Context:  contextTail(msgs, delta, m.cfg.ContextWindow),
			})
		}
	}

	// Commit the cycle: snapshot, layout cache, and counters move
	// together.
	m.hint = hint
	m.retained = snap
	m.contact = contact
	m.lastFP = fp
	m.met.TrackedMessages.Set(int64(len(msgs)))
	m.toState(StateTracking)
	m.resetFailures()
}

// loseWindow drops back to Searching and clears per-window state.
func (m *Monitor) loseWindow(err error) {
	m.met.WindowLostTotal.Inc()
	m.log.Info("window lost", "error", err)
	m.hint = nil
	m.retained = nil
	m.lastFP = ""
	m.toState(StateSearching)
	m.noteFailure()
}

func (m *Monitor) noteFailure() {
	m.failures++
	m.met.ConsecutiveFails.Set(int64(m.failures))

	if m.state == StateTracking && m.failures >= m.cfg.DegradeAfter {
		m.toState(StateDegraded)
	}

	if m.backoff == 0 {
		m.backoff = m.cfg.BackoffBase
	} else {
		m.backoff = time.Duration(float64(m.backoff) * m.cfg.BackoffFactor)
	}
	if m.backoff > m.cfg.BackoffMax {
		m.backoff = m.cfg.BackoffMax
	}
}

func (m *Monitor) resetFailures() {
	m.failures = 0
	m.backoff = 0
	m.met.ConsecutiveFails.Set(0)
}

func (m *Monitor) toState(s State) {
	if m.state == s {
		return
	}
	m.log.Info("state change", "from", m.state.String(), "to", s.String())
	m.state = s
	m.met.MonitorState.Set(int64(s))
}

// nextInterval is the fixed cadence while Tracking and the current
// backoff otherwise. Backoff grows strictly from base to the cap.
func (m *Monitor) nextInterval() time.Duration {
	if m.state == StateTracking && m.failures == 0 {
		return m.cfg.Interval
	}
	if m.backoff == 0 {
		return m.cfg.BackoffBase
	}
	return m.backoff
}

func (m *Monitor) publishStatus(next time.Duration) {
	m.met.PollIntervalMs.Set(next.Milliseconds())

	tracked := 0
	if m.retained != nil {
		tracked = len(m.retained.Messages)
	}

	m.mu.Lock()
	m.status = Snapshot{
		State:            m.state,
		Contact:          m.contact,
		TrackedMessages:  tracked,
		ConsecutiveFails: m.failures,
		NextInterval:     next,
	}
	m.mu.Unlock()
}

// contextTail returns up to n messages preceding the delta, so the
// backend sees the conversation the new messages landed in.
func contextTail(all, delta []transcript.Message, n int) []transcript.Message {
	if n <= 0 || len(all) == 0 {
		return nil
	}

	deltaFPs := make(map[string]struct{}, len(delta))
	for _, d := range delta {
		deltaFPs[d.Fingerprint] = struct{}{}
	}

	var tail []transcript.Message
	for i := len(all) - 1; i >= 0 && len(tail) < n; i-- {
		if _, isNew := deltaFPs[all[i].Fingerprint]; isNew {
			continue
		}
		tail = append(tail, all[i])
	}

	// Reverse into chronological order.
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return tail
}

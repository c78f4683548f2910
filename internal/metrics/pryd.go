package metrics

// PrydMetrics holds all daemon metrics.
type PrydMetrics struct {
	registry *Registry

	// Counters
	CyclesTotal          *Counter
	CaptureFailures      *Counter
	LayoutUnresolved     *Counter
	LayoutCacheHits      *Counter
	MessagesEmitted      *Counter
	EvaluationsTotal     *Counter
	EvaluationFailures   *Counter
	NotificationsTotal   *Counter
	WindowLostTotal      *Counter

	// Gauges
	MonitorState     *Gauge
	TrackedMessages  *Gauge
	PollIntervalMs   *Gauge
	ConsecutiveFails *Gauge

	// Histograms
	CycleDuration    *Histogram
	CaptureDuration  *Histogram
	OCRDuration      *Histogram
	EvaluateDuration *Histogram
}

// NewPrydMetrics creates and registers all daemon metrics.
func NewPrydMetrics(registry *Registry) *PrydMetrics {
	if registry == nil {
		registry = NewRegistry("pryd")
	}

	return &PrydMetrics{
		registry: registry,

		CyclesTotal: registry.RegisterCounter(
			"cycles_total",
			"Total number of monitor cycles completed",
			nil,
		),
		CaptureFailures: registry.RegisterCounter(
			"capture_failures_total",
			"Total number of transient capture failures",
			nil,
		),
		LayoutUnresolved: registry.RegisterCounter(
			"layout_unresolved_total",
			"Total number of cycles where no region cleared the confidence floor",
			nil,
		),
		LayoutCacheHits: registry.RegisterCounter(
			"layout_cache_hits_total",
			"Total number of cycles served by the cached layout hint",
			nil,
		),
		MessagesEmitted: registry.RegisterCounter(
			"messages_emitted_total",
			"Total number of new messages emitted by the differ",
			nil,
		),
		EvaluationsTotal: registry.RegisterCounter(
			"evaluations_total",
			"Total number of backend evaluations attempted",
			nil,
		),
		EvaluationFailures: registry.RegisterCounter(
			"evaluation_failures_total",
			"Total number of backend evaluations that failed",
			nil,
		),
		NotificationsTotal: registry.RegisterCounter(
			"notifications_total",
			"Total number of notifications delivered",
			nil,
		),
		WindowLostTotal: registry.RegisterCounter(
			"window_lost_total",
			"Total number of times the tracked window vanished",
			nil,
		),

		MonitorState: registry.RegisterGauge(
			"monitor_state",
			"Current loop state (0=searching, 1=tracking, 2=degraded)",
			nil,
		),
		TrackedMessages: registry.RegisterGauge(
			"tracked_messages",
			"Messages in the retained snapshot",
			nil,
		),
		PollIntervalMs: registry.RegisterGauge(
			"poll_interval_ms",
			"Current polling interval in milliseconds",
			nil,
		),
		ConsecutiveFails: registry.RegisterGauge(
			"consecutive_failures",
			"Consecutive failed cycles feeding the backoff",
			nil,
		),

		CycleDuration: registry.RegisterHistogram(
			"cycle_duration_seconds",
			"Time spent per monitor cycle",
			nil, nil,
		),
		CaptureDuration: registry.RegisterHistogram(
			"capture_duration_seconds",
			"Time spent capturing the window frame",
			nil, nil,
		),
		OCRDuration: registry.RegisterHistogram(
			"ocr_duration_seconds",
			"Time spent in text extraction",
			nil, nil,
		),
		EvaluateDuration: registry.RegisterHistogram(
			"evaluate_duration_seconds",
			"Time spent in backend evaluation",
			nil, nil,
		),
	}
}

// Registry returns the underlying registry for serving.
func (m *PrydMetrics) Registry() *Registry {
	return m.registry
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pryd/internal/brain"
	"pryd/internal/config"
	"pryd/internal/health"
	"pryd/internal/layout"
	"pryd/internal/logging"
	"pryd/internal/memory"
	"pryd/internal/metrics"
	"pryd/internal/monitor"
	"pryd/internal/notify"
	"pryd/internal/ocr"
	"pryd/internal/transcript"
	"pryd/internal/window"
)

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath(), "Configuration file path")
	platform := fs.String("platform", "", "Watch only this profile (wechat, qq)")
	fs.Parse(os.Args[2:])

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	if *platform != "" {
		cfg.Platform = *platform
	}

	log, err := logging.New(&logging.Config{
		Level:    logging.ParseLevel(cfg.Logging.Level),
		Format:   logging.ParseFormat(cfg.Logging.Format),
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		fatal("setup logging: %v", err)
	}
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		log.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	d, err := buildDaemon(cfg, log)
	if err != nil {
		fatal("%v", err)
	}
	defer d.Close()

	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}
	loader.OnChange(func(next *config.Config) {
		// Only the loop tunables swap live; engine/provider changes
		// need a restart.
		d.mon.UpdateConfig(monitorConfig(next))
		log.Info("config reloaded; monitor tunables applied")
	})
	defer loader.Close()

	log.Info("pryd starting",
		"version", cfg.Version,
		"platform", platformLabel(cfg),
		"ocr_engine", cfg.OCR.Engine,
		"brain", brainLabel(d.client, cfg))

	d.Run(ctx)
	log.Info("pryd stopped")
}

// daemon bundles everything cmdRun wires together.
type daemon struct {
	cfg      *config.Config
	log      *logging.Logger
	met      *metrics.PrydMetrics
	store    *memory.Store
	client   *brain.Client
	worker   *brain.Worker
	notifier *notify.Multi
	mon      *monitor.Monitor
	checker  *health.Checker
	server   *http.Server
}

func buildDaemon(cfg *config.Config, log *logging.Logger) (*daemon, error) {
	met := metrics.NewPrydMetrics(nil)

	source, err := window.NewSource()
	if err != nil {
		return nil, err
	}

	profile := activeProfile(cfg)
	classifier := layout.New(layout.Config{
		MinConfidence:     cfg.Layout.MinConfidence,
		EdgeThreshold:     cfg.Layout.EdgeThreshold,
		ResizeTolerancePx: cfg.Layout.ResizeTolerancePx,
		Fallback: layout.Fallback{
			ChatListPct:   profile.ChatListPct,
			MemberPanePct: profile.MemberPanePct,
			TitleBarPct:   profile.TitleBarPct,
			InputBarPct:   profile.InputBarPct,
		},
	})

	ocrCfg := ocr.Config{
		Engine:        cfg.OCR.Engine,
		Endpoint:      cfg.OCR.Endpoint,
		TesseractPath: cfg.OCR.TesseractPath,
		Languages:     cfg.OCR.Languages,
		Timeout:       cfg.OCR.Timeout,
		MinConfidence: cfg.OCR.MinConfidence,
		MinBoxArea:    cfg.OCR.MinBoxArea,
	}
	engine, err := ocr.NewEngine(ocrCfg)
	if err != nil {
		return nil, err
	}
	extractor := ocr.NewExtractor(engine, ocrCfg)

	store, err := memory.Open(cfg.Memory.Path)
	if err != nil {
		return nil, err
	}

	d := &daemon{cfg: cfg, log: log, met: met, store: store}

	notifiers := []notify.Notifier{}
	if cfg.Notify.Desktop {
		if desktop, err := notify.NewDesktop(cfg.Notify.TimeoutMs); err != nil {
			log.Warn("desktop notifications unavailable", "error", err)
		} else {
			notifiers = append(notifiers, desktop)
		}
	}
	if cfg.Notify.Console || len(notifiers) == 0 {
		notifiers = append(notifiers, notify.NewConsole(log.Logger))
	}
	d.notifier = notify.NewMulti(log.Logger, notifiers...)

	persona := brain.NewPersonality("皮皮")
	client, err := brain.NewClient(brain.Config{
		Provider:    cfg.Brain.Provider,
		Model:       cfg.Brain.Model,
		BaseURL:     cfg.Brain.BaseURL,
		Timeout:     cfg.Brain.Timeout,
		Temperature: cfg.Brain.Temperature,
	}, persona, log.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	d.client = client

	if client.Configured() {
		backend := &instrumentedBackend{inner: client, persona: persona, met: met}
		d.worker = brain.NewWorker(backend, log.Logger, d.applyResult)
	} else {
		log.Warn("no API key in environment; actions disabled",
			"provider", cfg.Brain.Provider)
	}

	onDelta := func(delta monitor.Delta) {
		persona.Observe(delta.Messages)
		if err := store.RecordInteraction(delta.Contact); err != nil {
			log.Warn("record interaction failed", "contact", delta.Contact, "error", err)
		}
		if d.worker == nil {
			log.Info("new messages",
				"contact", delta.Contact, "count", len(delta.Messages))
			return
		}
		hint, err := store.ContextFor(delta.Contact)
		if err != nil {
			log.Warn("memory lookup failed", "contact", delta.Contact, "error", err)
		}
		d.worker.Submit(brain.Request{
			Contact:     delta.Contact,
			Delta:       delta.Messages,
			Context:     delta.Context,
			ProfileHint: hint,
			Mood:        persona.Mood(),
			SubmittedAt: time.Now(),
		})
	}

	normCfg := transcript.DefaultNormalizerConfig()
	if cfg.OCR.MinMessageLen > 0 {
		normCfg.MinMessageLen = cfg.OCR.MinMessageLen
	}

	d.mon = monitor.New(
		monitorConfig(cfg),
		source,
		watchTargets(cfg),
		classifier,
		extractor,
		transcript.NewNormalizer(normCfg),
		onDelta,
		met,
		log.Logger,
	)

	d.checker = health.NewChecker()
	d.checker.RegisterFunc("memory", true, health.DatabaseCheck(store.Ping))
	if cfg.OCR.Engine == "http" {
		d.checker.RegisterFunc("ocr-sidecar", false, health.SidecarCheck(cfg.OCR.Endpoint))
	}
	d.checker.RegisterFunc("brain", false, health.CustomCheck(func() error {
		if !client.Configured() {
			return brain.ErrNotConfigured
		}
		return nil
	}))

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", met.Registry().HTTPHandler())
		mux.Handle("/healthz", d.checker.Handler())
		d.server = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
	}

	return d, nil
}

// Run blocks until the context is canceled.
func (d *daemon) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if d.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker.Run(ctx)
		}()
	}

	if d.server != nil {
		go func() {
			d.log.Info("metrics listener up", "addr", d.server.Addr)
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.log.Error("metrics listener failed", "error", err)
			}
		}()
	}

	d.checker.SetReady(true)

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.mon.Run(ctx)
	}()

	<-ctx.Done()

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		d.server.Shutdown(shutdownCtx)
		cancel()
	}
	wg.Wait()
}

func (d *daemon) Close() error {
	d.notifier.Close()
	return d.store.Close()
}

// applyResult runs on the worker goroutine: persist what the model
// learned, then surface the action.
func (d *daemon) applyResult(req brain.Request, res brain.ActionResult) {
	if upd := res.Memory; upd != nil {
		err := d.store.ApplyUpdates(req.Contact,
			upd.Contact.Notes, upd.Contact.Topics, upd.User.Notes)
		if err != nil {
			d.log.Warn("memory update failed", "contact", req.Contact, "error", err)
		}
	}

	if res.Kind == brain.ActionNone {
		return
	}

	d.met.NotificationsTotal.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.notifier.Notify(ctx, notify.Notification{
		Kind:    res.Kind,
		Contact: req.Contact,
		Body:    res.Content,
	})
}

// instrumentedBackend wraps the chat client with metrics and mood
// bookkeeping so every evaluation feeds both.
type instrumentedBackend struct {
	inner   brain.Backend
	persona *brain.Personality
	met     *metrics.PrydMetrics
}

func (b *instrumentedBackend) Evaluate(ctx context.Context, req brain.Request) (brain.ActionResult, error) {
	b.met.EvaluationsTotal.Inc()
	start := time.Now()
	res, err := b.inner.Evaluate(ctx, req)
	b.met.EvaluateDuration.ObserveDuration(time.Since(start))
	if err != nil {
		b.met.EvaluationFailures.Inc()
		return res, err
	}
	if res.Kind == brain.ActionNone {
		b.persona.NoteQuiet()
	} else {
		b.persona.NoteAction()
	}
	return res, nil
}

func monitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{
		Interval:       cfg.Monitor.Interval,
		BackoffBase:    cfg.Monitor.BackoffBase,
		BackoffFactor:  cfg.Monitor.BackoffFactor,
		BackoffMax:     cfg.Monitor.BackoffMax,
		DegradeAfter:   cfg.Monitor.DegradeAfter,
		CaptureTimeout: cfg.Monitor.CaptureTimeout,
		ContextWindow:  cfg.Monitor.ContextWindow,
	}
}

// activeProfile picks the profile whose fallback geometry seeds the
// classifier: the configured platform, or the first profile.
func activeProfile(cfg *config.Config) *config.Profile {
	if cfg.Platform != "" {
		if p := cfg.ProfileByName(cfg.Platform); p != nil {
			return p
		}
	}
	if len(cfg.Profiles) > 0 {
		return &cfg.Profiles[0]
	}
	defaults := config.DefaultProfiles()
	return &defaults[0]
}

// watchTargets maps profiles to window search targets. An explicit
// platform narrows the search to that one application.
func watchTargets(cfg *config.Config) []window.Target {
	profiles := cfg.Profiles
	if cfg.Platform != "" {
		if p := cfg.ProfileByName(cfg.Platform); p != nil {
			profiles = []config.Profile{*p}
		}
	}
	targets := make([]window.Target, 0, len(profiles))
	for _, p := range profiles {
		targets = append(targets, window.Target{Title: p.WindowTitle, Class: p.WindowClass})
	}
	return targets
}

func platformLabel(cfg *config.Config) string {
	if cfg.Platform != "" {
		return cfg.Platform
	}
	return "auto"
}

func brainLabel(client *brain.Client, cfg *config.Config) string {
	if client.Configured() {
		return cfg.Brain.Provider
	}
	return "disabled"
}

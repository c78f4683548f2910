package brain

import (
	"context"
	"log/slog"
	"sync"
)

// Worker serializes backend calls: at most one evaluation is in flight,
// and requests submitted while busy coalesce so only the newest runs
// next. Chat moves faster than the model answers; replying to a stale
// window is worse than skipping it.
type Worker struct {
	backend  Backend
	log      *slog.Logger
	onResult func(Request, ActionResult)

	mu      sync.Mutex
	pending *Request
	wake    chan struct{}
}

// NewWorker wires a backend to a result callback. The callback runs on
// the worker goroutine and only for actions other than none.
func NewWorker(backend Backend, logger *slog.Logger, onResult func(Request, ActionResult)) *Worker {
	return &Worker{
		backend:  backend,
		log:      logger,
		onResult: onResult,
		wake:     make(chan struct{}, 1),
	}
}

// Submit queues a request, replacing any not-yet-started one.
func (w *Worker) Submit(req Request) {
	w.mu.Lock()
	replaced := w.pending != nil
	w.pending = &req
	w.mu.Unlock()

	if replaced {
		w.log.Debug("coalesced pending evaluation", "contact", req.Contact)
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run processes requests until the context is canceled. Backend errors
// are logged and dropped; the next delta retries naturally.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		for {
			req := w.take()
			if req == nil {
				break
			}

			result, err := w.backend.Evaluate(ctx, *req)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.Warn("evaluation failed", "contact", req.Contact, "error", err)
				continue
			}
			if result.Kind == ActionNone && result.Memory.Empty() {
				continue
			}
			w.onResult(*req, result)
		}
	}
}

func (w *Worker) take() *Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.pending
	w.pending = nil
	return req
}

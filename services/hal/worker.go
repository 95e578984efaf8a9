// services/hal/worker.go
package hal

import (
	"context"
	"sync"
	"time"
)

// measureWorker serialises measurements on one bus. At most one conversion is
// in flight: the next request is triggered only after the previous one has
// been collected or has failed.
type measureWorker struct {
	cfg  WorkerConfig
	reqQ chan MeasureReq
	sink chan<- Result

	queue  []MeasureReq
	queued map[string]bool
	active *collectItem
	want   map[string]bool // read_now seen while id was in flight
	timer  *time.Timer

	// Removals are recorded under mu so Remove never blocks on the run loop.
	mu      sync.Mutex
	removed []string
	kick    chan struct{}
}

type collectItem struct {
	id      string
	adaptor Adaptor
	due     time.Time
	dropped bool // device removed while converting; result is discarded
}

func NewWorker(cfg WorkerConfig, sink chan<- Result) *measureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	return &measureWorker{
		cfg:    cfg,
		reqQ:   make(chan MeasureReq, cfg.InputQueueSize),
		sink:   sink,
		queued: map[string]bool{},
		want:   map[string]bool{},
		timer:  time.NewTimer(time.Hour),
		kick:   make(chan struct{}, 1),
	}
}

// Remove forgets every request for id. Queued requests are dropped without
// being triggered and an in-flight conversion is collected but not reported.
// A later Submit for the same id is served normally.
func (w *measureWorker) Remove(id string) {
	w.mu.Lock()
	w.removed = append(w.removed, id)
	w.mu.Unlock()
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *measureWorker) applyRemovals() {
	w.mu.Lock()
	ids := w.removed
	w.removed = nil
	w.mu.Unlock()
	for _, id := range ids {
		delete(w.want, id)
		if w.queued[id] {
			delete(w.queued, id)
			q := w.queue[:0]
			for _, r := range w.queue {
				if r.ID != id {
					q = append(q, r)
				}
			}
			w.queue = q
		}
		if w.active != nil && w.active.id == id {
			w.active.dropped = true
		}
	}
}

func (w *measureWorker) Submit(req MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
		if req.Prio {
			select {
			case w.reqQ <- req:
				return true
			case <-time.After(5 * time.Millisecond):
			}
		}
		return false
	}
}

func (w *measureWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *measureWorker) run(ctx context.Context) {
	for {
		w.applyRemovals()
		if w.active == nil {
			w.startNext(ctx)
		}
		if w.active == nil {
			resetTimer(w.timer, time.Hour)
		} else {
			resetTimer(w.timer, time.Until(w.active.due))
		}
		select {
		case <-ctx.Done():
			w.timer.Stop()
			return
		case <-w.kick:
		case req := <-w.reqQ:
			// A Remove issued before this Submit must not discard it.
			w.applyRemovals()
			w.enqueue(req)
		case <-w.timer.C:
			w.collect(ctx)
		}
	}
}

func (w *measureWorker) enqueue(req MeasureReq) {
	if w.active != nil && w.active.id == req.ID && !w.active.dropped {
		if req.Prio {
			w.want[req.ID] = true
		}
		return
	}
	if w.queued[req.ID] {
		return
	}
	w.queued[req.ID] = true
	if req.Prio {
		w.queue = append([]MeasureReq{req}, w.queue...)
	} else {
		w.queue = append(w.queue, req)
	}
}

// startNext triggers queued requests until one is in flight or the queue is
// empty. Trigger failures are reported and skipped.
func (w *measureWorker) startNext(ctx context.Context) {
	for len(w.queue) > 0 {
		req := w.queue[0]
		w.queue = w.queue[1:]
		delete(w.queued, req.ID)

		tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
		after, err := req.Adaptor.Trigger(tctx)
		cancel()
		if err != nil {
			w.emit(ctx, Result{ID: req.ID, Err: err})
			continue
		}
		w.active = &collectItem{id: req.ID, adaptor: req.Adaptor, due: time.Now().Add(after)}
		return
	}
}

// collect reads the in-flight conversion. A failure is reported as is; the
// next scheduled tick or a pending read_now triggers a fresh conversion.
func (w *measureWorker) collect(ctx context.Context) {
	it := w.active
	if it == nil || time.Now().Before(it.due) {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
	s, err := it.adaptor.Collect(cctx)
	cancel()
	w.active = nil
	if it.dropped {
		return
	}
	if err != nil {
		w.emit(ctx, Result{ID: it.id, Err: err})
		if w.want[it.id] {
			delete(w.want, it.id)
			w.enqueue(MeasureReq{ID: it.id, Adaptor: it.adaptor, Prio: true})
		}
		return
	}
	delete(w.want, it.id)
	w.emit(ctx, Result{ID: it.id, Sample: s})
}

func (w *measureWorker) emit(ctx context.Context, r Result) {
	select {
	case w.sink <- r:
	case <-ctx.Done():
	}
}

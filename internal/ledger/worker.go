package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// txn is the working state an intent runs against. Nothing in it is visible
// outside the worker until the commit succeeds.
type txn struct {
	st      *store
	rec     *recorder
	actorID string
	newID   func() string

	createdID string
}

type request struct {
	ctx     context.Context
	actorID string
	intent  Intent
	reply   chan response
}

type response struct {
	result *Result
	err    error
}

// groupWorker is the single writer for one group.
type groupWorker struct {
	gw    *Gateway
	st    *store // owned by the run goroutine
	snap  atomic.Pointer[Snapshot]
	queue chan *request
	done  chan struct{}
}

func newGroupWorker(gw *Gateway, st *store) *groupWorker {
	w := &groupWorker{
		gw:    gw,
		st:    st,
		queue: make(chan *request, gw.queueDepth),
		done:  make(chan struct{}),
	}
	w.snap.Store(newSnapshot(st.toGroup()))
	return w
}

func (w *groupWorker) snapshot() *Snapshot {
	return w.snap.Load()
}

// submit enqueues an intent and waits for its outcome. Once enqueued the intent
// is always answered, even if ctx is cancelled while it waits.
func (w *groupWorker) submit(ctx context.Context, actorID string, intent Intent) (*Result, error) {
	req := &request{
		ctx:     ctx,
		actorID: actorID,
		intent:  intent,
		reply:   make(chan response, 1),
	}
	select {
	case w.queue <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.gw.quit:
		return nil, ErrClosed
	}

	select {
	case resp := <-req.reply:
		return resp.result, resp.err
	case <-w.done:
		select {
		case resp := <-req.reply:
			return resp.result, resp.err
		default:
			return nil, ErrClosed
		}
	}
}

func (w *groupWorker) run() {
	defer w.gw.wg.Done()
	defer close(w.done)
	defer w.gw.metrics.groupsLoaded.Dec()

	for {
		select {
		case req := <-w.queue:
			req.reply <- w.handle(req)
		case <-w.gw.quit:
			w.drain()
			return
		}
	}
}

// drain rejects whatever is still queued.
func (w *groupWorker) drain() {
	for {
		select {
		case req := <-w.queue:
			req.reply <- response{err: ErrClosed}
		default:
			return
		}
	}
}

func (w *groupWorker) handle(req *request) response {
	name := req.intent.Name()
	logger := w.gw.logger.With("group_id", w.st.id, "intent", name, "actor_id", req.actorID)

	// The caller gave up before its turn came.
	if err := req.ctx.Err(); err != nil {
		return response{err: err}
	}

	start := time.Now()
	res, err := w.apply(req)
	w.gw.metrics.applySeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil && res.Changed:
		w.gw.metrics.intents.WithLabelValues(name, outcomeCommitted).Inc()
		logger.Debug("Intent committed", "entries", len(res.Entries), "created_id", res.CreatedID)
	case err == nil:
		w.gw.metrics.intents.WithLabelValues(name, outcomeNoop).Inc()
		logger.Debug("Intent was a no-op")
	case KindOf(err) == KindInvariantViolation:
		w.gw.metrics.intents.WithLabelValues(name, outcomeOf(err)).Inc()
		logger.Error("Ledger invariant violated", "error", err)
	default:
		w.gw.metrics.intents.WithLabelValues(name, outcomeOf(err)).Inc()
		logger.Warn("Intent rejected", "error", err)
	}
	return response{result: res, err: err}
}

// apply runs the intent against a private copy and commits it.
// On any error the published state is left exactly as it was.
func (w *groupWorker) apply(req *request) (*Result, error) {
	gw := w.gw
	work := w.st.clone()
	tx := &txn{
		st:      work,
		rec:     newRecorder(work, gw.now()),
		actorID: req.actorID,
		newID:   gw.newID,
	}

	changed, err := req.intent.apply(tx)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &Result{Snapshot: w.snapshot()}, nil
	}

	// A commit that reached persistence runs to completion.
	if err := gw.persist.SaveGroup(context.WithoutCancel(req.ctx), work.toGroup()); err != nil {
		gw.metrics.saveFailures.Inc()
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	w.st = work
	snap := newSnapshot(work.toGroup())
	w.snap.Store(snap)
	return &Result{
		Snapshot:  snap,
		Changed:   true,
		CreatedID: tx.createdID,
		Entries:   tx.rec.recorded,
	}, nil
}

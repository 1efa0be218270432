package csvchunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Dispatcher sends batches to a Sink with at most a fixed number of sends in
// flight.
//
// Submit blocks while the ceiling is reached, which holds back whoever is
// producing batches. Drain waits for every accepted batch to resolve and
// returns the first failure of the run. A failure stops the dispatcher from
// accepting further batches, but sends already in flight are allowed to
// finish; nothing is retracted.
//
// A Dispatcher serves a single run and must not be reused after Drain.
type Dispatcher struct {
	sink     Sink
	ceiling  int64
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	maxCount int
	maxBytes int
	logger   *slog.Logger
	stats    *Stats

	progress    ProgressReporter
	reportEvery int64

	group   errgroup.Group
	first   firstError
	aborted context.Context
	abort   context.CancelCauseFunc

	outstanding atomic.Int64
	peak        atomic.Int64
}

// NewDispatcher creates a Dispatcher for sink allowing ceiling concurrent
// sends. A ceiling below 1 falls back to DefaultConcurrency.
//
// Per-call limits are detected from the sink's optional [MessageLimiter] and
// [PayloadLimiter] implementations.
func NewDispatcher(sink Sink, ceiling int) *Dispatcher {
	if ceiling < 1 {
		ceiling = DefaultConcurrency
	}

	aborted, abort := context.WithCancelCause(context.Background())
	d := &Dispatcher{
		sink:    sink,
		ceiling: int64(ceiling),
		sem:     semaphore.NewWeighted(int64(ceiling)),
		logger:  slog.Default(),
		stats:   &Stats{},
		aborted: aborted,
		abort:   abort,
	}

	if l, ok := sink.(MessageLimiter); ok {
		d.maxCount = l.MaxMessagesPerCall()
	}
	if l, ok := sink.(PayloadLimiter); ok {
		d.maxBytes = l.MaxPayloadBytes()
	}

	return d
}

// WithRateLimit caps sink calls to perSecond calls per second across all
// in-flight sends. Values less than or equal to zero disable the cap.
func (d *Dispatcher) WithRateLimit(perSecond float64) *Dispatcher {
	if perSecond <= 0 {
		d.limiter = nil
		return d
	}
	burst := max(int(perSecond), 1)
	d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return d
}

// WithLogger sets the logger used for failures that are not reported.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Stats returns the live counters of the run.
func (d *Dispatcher) Stats() *Stats { return d.stats }

// Ceiling returns the maximum number of concurrent sends.
func (d *Dispatcher) Ceiling() int { return int(d.ceiling) }

// Outstanding returns the number of accepted batches not yet resolved.
func (d *Dispatcher) Outstanding() int64 { return d.outstanding.Load() }

// Peak returns the highest value Outstanding has reached.
func (d *Dispatcher) Peak() int64 { return d.peak.Load() }

// Err returns the first failure recorded so far, or nil.
func (d *Dispatcher) Err() error { return d.first.get() }

// Abort records err as the run's failure unless one is already recorded, and
// stops the dispatcher from accepting new batches. In-flight sends are not
// interrupted. It reports whether err became the run's failure.
func (d *Dispatcher) Abort(err error) bool {
	if err == nil {
		return false
	}
	recorded := d.first.set(err)
	d.abort(err)
	return recorded
}

// Submit hands batch to the dispatcher. It blocks until a send slot is free,
// ctx is done, or the run is aborted; in the latter two cases the batch is
// not sent and the error is returned. ctx is also the context of the send
// itself.
func (d *Dispatcher) Submit(ctx context.Context, batch Batch) error {
	if err := d.first.get(); err != nil {
		return err
	}

	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.aborted, cancel)
	defer stop()

	if err := d.sem.Acquire(acquireCtx, 1); err != nil {
		if first := d.first.get(); first != nil {
			return first
		}
		return err
	}
	// A slot freed by a failing task can win the race against the abort.
	if first := d.first.get(); first != nil {
		d.sem.Release(1)
		return first
	}

	d.trackPeak(d.outstanding.Add(1))

	d.group.Go(func() error {
		defer func() {
			d.outstanding.Add(-1)
			d.sem.Release(1)
		}()

		err := d.send(ctx, batch)
		if err == nil {
			return nil
		}
		if !d.Abort(err) {
			d.logger.WarnContext(ctx, "dispatch failed after run already failed",
				"batch", batch.Seq,
				"error", err,
			)
		}
		return err
	})

	return nil
}

// Drain waits for every submitted batch to resolve. It returns the first
// failure recorded for the run, or nil when every batch was delivered.
func (d *Dispatcher) Drain() error {
	err := d.group.Wait()
	d.abort(nil)
	if first := d.first.get(); first != nil {
		return first
	}
	return err
}

func (d *Dispatcher) trackPeak(n int64) {
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// send serializes the batch and transmits it in as many sink calls as the
// sink's limits require. The first failed call fails the batch and the
// remaining calls are not attempted.
func (d *Dispatcher) send(ctx context.Context, batch Batch) error {
	msgs, err := Serialize(batch)
	if err != nil {
		d.stats.incFailed(int64(batch.Len()))
		return &Error{Kind: KindDispatch, Batch: batch.Seq, Err: err}
	}

	calls := SplitMessages(msgs, d.maxCount, d.maxBytes)
	remaining := int64(len(msgs))

	for _, call := range calls {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				d.stats.incFailed(remaining)
				return &Error{Kind: KindDispatch, Batch: batch.Seq, Err: err}
			}
		}

		failures, err := d.sink.SendBatch(ctx, call)
		if err != nil {
			d.stats.incFailed(remaining)
			return &Error{Kind: KindDispatch, Batch: batch.Seq, Err: err}
		}
		if len(failures) > 0 {
			d.stats.incDelivered(int64(len(call) - len(failures)))
			d.stats.incFailed(remaining - int64(len(call)-len(failures)))
			return rejected(batch.Seq, len(call), failures)
		}

		remaining -= int64(len(call))
		d.delivered(ctx, int64(len(call)))
	}

	d.stats.incDispatched(1)
	return nil
}

// delivered counts accepted messages and reports progress when a report
// interval boundary is crossed.
func (d *Dispatcher) delivered(ctx context.Context, n int64) {
	newDelivered := d.stats.incDelivered(n)
	prevDelivered := newDelivered - n

	if d.progress != nil && d.reportEvery > 0 && newDelivered/d.reportEvery > prevDelivered/d.reportEvery {
		d.progress.OnProgress(ctx, d.stats)
	}
}

func rejected(seq, sent int, failures []Failure) *Error {
	ids := make([]string, 0, len(failures))
	reasons := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.ID)
		reason := f.Code
		if f.Message != "" {
			reason += " " + f.Message
		}
		reasons = append(reasons, strings.TrimSpace(reason))
	}
	return &Error{
		Kind:       KindDispatch,
		Batch:      seq,
		MessageIDs: ids,
		Err:        fmt.Errorf("sink rejected %d of %d messages: %s", len(failures), sent, strings.Join(reasons, "; ")),
	}
}

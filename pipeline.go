package csvchunk

import (
	"context"
	"errors"
	"log/slog"
)

// Pipeline streams one delimited-text object from a Source into batches and
// dispatches them to a Sink.
type Pipeline struct {
	source Source
	sink   Sink

	// Configuration overrides (nil means use default)
	batchSize      *int
	concurrency    *int
	delimiter      *rune
	reportInterval *int
	sendRate       float64
	logger         *slog.Logger

	// Optional hooks (registered through WithHooks)
	starter  Starter
	stopper  Stopper
	observer BatchObserver
	progress ProgressReporter
}

// New creates a Pipeline reading from source and sending to sink.
// Panics if either is nil.
func New(source Source, sink Sink) *Pipeline {
	if source == nil || sink == nil {
		panic("csvchunk: source and sink are required")
	}
	return &Pipeline{
		source: source,
		sink:   sink,
	}
}

// Run processes the object at loc to completion.
//
// The returned Stats are always non-nil. The error is nil only when every
// emitted batch was delivered. Otherwise it is an *Error of the first
// failure: a retrieval failure returns before any parsing; a parse or dispatch
// failure stops further batches from being emitted and is returned once every
// send already in flight has resolved.
func (p *Pipeline) Run(ctx context.Context, loc Location) (*Stats, error) {
	if p.starter != nil {
		ctx = p.starter.Start(ctx, loc)
	}

	d := NewDispatcher(p.sink, p.resolveConcurrency()).
		WithRateLimit(p.sendRate).
		WithLogger(p.resolveLogger())
	if p.progress != nil {
		d.progress = p.progress
		d.reportEvery = int64(p.resolveReportInterval())
	}

	err := p.execute(ctx, loc, d)

	if p.stopper != nil {
		p.stopper.Stop(ctx, d.Stats(), err)
	}

	return d.Stats(), err
}

// execute opens the object, feeds every emitted batch to the dispatcher and
// waits for the dispatcher to drain.
func (p *Pipeline) execute(ctx context.Context, loc Location, d *Dispatcher) error {
	logger := p.resolveLogger()

	rc, err := p.source.Open(ctx, loc)
	if err != nil {
		return &Error{Kind: KindRetrieval, Location: loc, Err: err}
	}
	defer rc.Close()

	stats := d.Stats()
	batcher := NewBatcher(p.resolveBatchSize(), p.resolveDelimiter())

	for batch, err := range batcher.Batches(rc) {
		if err != nil {
			p.abort(ctx, d, err)
			break
		}

		if err := d.Submit(ctx, batch); err != nil {
			var e *Error
			if !errors.As(err, &e) {
				err = &Error{Kind: KindDispatch, Batch: batch.Seq, Err: err}
			}
			p.abort(ctx, d, err)
			break
		}

		// Only accepted batches count as emitted.
		stats.incBatches(1)
		stats.incRecords(int64(batch.Len()))

		if p.observer != nil {
			p.observer.OnBatch(ctx, batch)
		}
	}

	if err := d.Drain(); err != nil {
		return withLocation(err, loc)
	}

	logger.InfoContext(ctx, "all batches sent",
		"location", loc.String(),
		"stats", stats,
	)
	return nil
}

// abort stops the run with err. An err arriving after the run already
// failed is logged and dropped.
func (p *Pipeline) abort(ctx context.Context, d *Dispatcher, err error) {
	if d.Abort(err) || err == d.Err() {
		return
	}
	p.resolveLogger().WarnContext(ctx, "error after run already failed",
		"error", err,
		"first_error", d.Err(),
	)
}

// withLocation attaches loc to a run error that does not carry one yet.
func withLocation(err error, loc Location) error {
	var e *Error
	if !errors.As(err, &e) || e.Location != (Location{}) {
		return err
	}
	cp := *e
	cp.Location = loc
	return &cp
}

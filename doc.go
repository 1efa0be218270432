// Package csvchunk streams a delimited-text object into fixed-size batches
// and dispatches every batch to a message queue with bounded concurrency.
//
// A run reads one object from a [Source], parses it incrementally (the first
// line names the fields), groups records into batches of BatchSize, and hands
// each batch to a [Dispatcher] that sends it to a [Sink] as one message per
// record. At most Concurrency sends are in flight; when the ceiling is reached
// the parser stops reading until a slot frees, so the object is never buffered
// ahead of send capacity.
//
// # Quick Start
//
//	src := objectstore.NewLocalStore("/data")
//	sink := sqs.New(client, queueURL)
//
//	stats, err := csvchunk.New(src, sink).Run(ctx, csvchunk.Location{
//	    Container: "uploads",
//	    Path:      "2024/orders.csv",
//	})
//	if err != nil {
//	    return err
//	}
//	slog.Info("done", "records", stats.Records(), "batches", stats.Batches())
//
// # Completion Semantics
//
// Run returns nil only after every emitted batch was accepted by the sink.
// Otherwise it returns the first failure as an *[Error]:
//
//   - KindRetrieval: the object could not be opened; nothing was parsed
//   - KindParse: a line was malformed or the stream broke; batches emitted
//     before it were dispatched, later records were not
//   - KindDispatch: a sink call failed or rejected messages; MessageIDs lists
//     rejected messages
//
// Parse and dispatch failures stop further batches from being emitted, but
// sends already in flight always finish before Run returns. Later failures
// are logged and never replace the first.
//
//	var e *csvchunk.Error
//	if errors.As(err, &e) && e.Kind == csvchunk.KindDispatch {
//	    slog.Error("rejected", "batch", e.Batch, "ids", e.MessageIDs)
//	}
//
// Each kind also matches a sentinel with errors.Is ([ErrRetrieval],
// [ErrParse], [ErrDispatch], [ErrConfiguration]).
//
// # Configuration
//
// Configure the pipeline with method chaining:
//
//	stats, err := csvchunk.New(src, sink).
//	    WithBatchSize(10).      // Records per batch
//	    WithConcurrency(20).    // Batches in flight
//	    WithDelimiter('\t').    // Field delimiter
//	    WithSendRate(50).       // Sink calls per second, 0 = uncapped
//	    WithLogger(logger).
//	    Run(ctx, loc)
//
// Sinks with per-call limits implement [MessageLimiter] and [PayloadLimiter];
// a batch that exceeds them is split into several calls within one dispatch.
//
// # Lifecycle Hooks
//
// Pass any value to WithHooks; it is registered for each of [Starter],
// [Stopper], [BatchObserver] and [ProgressReporter] it implements:
//
//	func (h *hooks) Stop(ctx context.Context, stats *csvchunk.Stats, err error) {
//	    if err != nil {
//	        slog.ErrorContext(ctx, "run failed", "error", err, "stats", stats)
//	        return
//	    }
//	    slog.InfoContext(ctx, "run complete", "stats", stats)
//	}
//
// # Using the Parts Directly
//
// [Batcher] and [Dispatcher] can be used without a Pipeline:
//
//	d := csvchunk.NewDispatcher(sink, 20)
//	for batch, err := range csvchunk.NewBatcher(10, ',').Batches(r) {
//	    if err != nil {
//	        d.Abort(err)
//	        break
//	    }
//	    if err := d.Submit(ctx, batch); err != nil {
//	        d.Abort(err)
//	        break
//	    }
//	}
//	err := d.Drain()
package csvchunk

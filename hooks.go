package csvchunk

import "context"

// Starter is called before the object is opened. Use it to enrich the
// context (request IDs, logger fields) or record a start time.
//
// The context returned by Start is used for the entire run, including sends.
//
// Example:
//
//	func (h *hooks) Start(ctx context.Context, loc csvchunk.Location) context.Context {
//	    h.startedAt = time.Now()
//	    return ctx
//	}
type Starter interface {
	Start(ctx context.Context, loc Location) context.Context
}

// Stopper is called exactly once after the run resolves, whether it
// succeeded or failed. err is the same error Run returns.
//
// Example:
//
//	func (h *hooks) Stop(ctx context.Context, stats *csvchunk.Stats, err error) {
//	    if err != nil {
//	        slog.ErrorContext(ctx, "run failed", "error", err, "stats", stats)
//	        return
//	    }
//	    slog.InfoContext(ctx, "run complete", "stats", stats)
//	}
type Stopper interface {
	Stop(ctx context.Context, stats *Stats, err error)
}

// BatchObserver is called for every batch accepted for dispatch, right after
// Submit returns. Batches refused because the run already failed are not
// observed. It runs on the parsing goroutine and must not retain or modify
// the batch.
type BatchObserver interface {
	OnBatch(ctx context.Context, batch Batch)
}

// WithHooks registers h for every optional hook interface it implements:
// [Starter], [Stopper], [BatchObserver] and [ProgressReporter]. Later calls
// replace the hooks h implements and keep the others.
func (p *Pipeline) WithHooks(h any) *Pipeline {
	if s, ok := h.(Starter); ok {
		p.starter = s
	}
	if s, ok := h.(Stopper); ok {
		p.stopper = s
	}
	if o, ok := h.(BatchObserver); ok {
		p.observer = o
	}
	if r, ok := h.(ProgressReporter); ok {
		p.progress = r
	}
	return p
}

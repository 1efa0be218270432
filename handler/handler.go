// Package handler runs a csvchunk pipeline for one storage event.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/sauryaacharya/csvchunk"
)

// Options configures the pipeline built for every event.
type Options struct {
	BatchSize   int
	Concurrency int
	Delimiter   rune
	SendRate    float64
	Logger      *slog.Logger
}

// Handler processes the object referenced by an invocation event.
type Handler struct {
	source csvchunk.Source
	sink   csvchunk.Sink
	opts   Options
	logger *slog.Logger
}

// New creates a Handler reading from source and sending to sink.
func New(source csvchunk.Source, sink csvchunk.Sink, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, sink: sink, opts: opts, logger: logger}
}

// Handle processes exactly one object. Events naming several objects have
// the first processed and the rest logged as ignored.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (csvchunk.Summary, error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("request_id", lc.AwsRequestID)
	}

	locs, err := ParseEvent(event)
	if err != nil {
		logger.ErrorContext(ctx, "invalid event", "error", err)
		return csvchunk.Summary{}, err
	}
	if len(locs) == 0 {
		logger.ErrorContext(ctx, "invalid event", "error", ErrNoObject)
		return csvchunk.Summary{}, ErrNoObject
	}
	for _, ignored := range locs[1:] {
		logger.WarnContext(ctx, "ignoring additional object in event", "location", ignored.String())
	}

	stats, err := csvchunk.New(h.source, h.sink).
		WithBatchSize(h.opts.BatchSize).
		WithConcurrency(h.opts.Concurrency).
		WithDelimiter(h.opts.Delimiter).
		WithSendRate(h.opts.SendRate).
		WithLogger(logger).
		WithHooks(&runLog{logger: logger}).
		Run(ctx, locs[0])
	return stats.Summary(), err
}

// runLog reports the start and outcome of every run.
type runLog struct {
	logger  *slog.Logger
	loc     csvchunk.Location
	started time.Time
}

func (r *runLog) Start(ctx context.Context, loc csvchunk.Location) context.Context {
	r.loc = loc
	r.started = time.Now()
	r.logger.InfoContext(ctx, "processing object", "location", loc.String())
	return ctx
}

func (r *runLog) Stop(ctx context.Context, stats *csvchunk.Stats, err error) {
	attrs := []any{
		"location", r.loc.String(),
		"total_rows", stats.Records(),
		"total_batches", stats.Batches(),
		"duration", time.Since(r.started),
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "object failed", append(attrs, "error", err, "stats", stats)...)
		return
	}
	r.logger.InfoContext(ctx, "object processed", attrs...)
}

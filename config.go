package csvchunk

import "log/slog"

// Default configuration values.
const (
	DefaultBatchSize      = 10
	DefaultConcurrency    = 20
	DefaultDelimiter      = ','
	DefaultReportInterval = 10000
)

// WithBatchSize overrides the number of records per batch.
// Priority: this method > DefaultBatchSize.
// Values less than 1 are ignored.
//
// Tuning guidance:
//   - Keep it at or below the sink's per-call message limit (10 for SQS) so
//     each batch is one sink call
//   - Larger values are split into several sink calls within the same
//     dispatch task and occupy a concurrency slot for longer
func (p *Pipeline) WithBatchSize(n int) *Pipeline {
	if n >= 1 {
		p.batchSize = &n
	}
	return p
}

// WithConcurrency overrides the maximum number of batches in flight.
// Priority: this method > DefaultConcurrency.
// Values less than 1 are ignored.
//
// The ceiling is independent of the batch size. It bounds memory too: at most
// ceiling batches plus the one being filled are held at any time.
func (p *Pipeline) WithConcurrency(n int) *Pipeline {
	if n >= 1 {
		p.concurrency = &n
	}
	return p
}

// WithDelimiter overrides the field delimiter.
// Priority: this method > DefaultDelimiter.
// Zero, '\r', '\n', '"' and the Unicode replacement character are ignored.
func (p *Pipeline) WithDelimiter(r rune) *Pipeline {
	switch r {
	case 0, '\r', '\n', '"', 0xFFFD:
		return p
	}
	p.delimiter = &r
	return p
}

// WithSendRate caps sink calls per second across the whole run.
// Values less than or equal to zero leave sends uncapped (the default).
func (p *Pipeline) WithSendRate(perSecond float64) *Pipeline {
	if perSecond > 0 {
		p.sendRate = perSecond
	}
	return p
}

// WithReportInterval overrides how often to report progress (in messages
// delivered). Values less than 1 are ignored.
func (p *Pipeline) WithReportInterval(n int) *Pipeline {
	if n >= 1 {
		p.reportInterval = &n
	}
	return p
}

// WithLogger sets the logger for the run. Nil is ignored.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// resolveBatchSize returns the effective batch size.
func (p *Pipeline) resolveBatchSize() int {
	if p.batchSize != nil {
		return *p.batchSize
	}
	return DefaultBatchSize
}

// resolveConcurrency returns the effective concurrency ceiling.
func (p *Pipeline) resolveConcurrency() int {
	if p.concurrency != nil {
		return *p.concurrency
	}
	return DefaultConcurrency
}

// resolveDelimiter returns the effective field delimiter.
func (p *Pipeline) resolveDelimiter() rune {
	if p.delimiter != nil {
		return *p.delimiter
	}
	return DefaultDelimiter
}

// resolveReportInterval returns the effective report interval.
// Priority: WithReportInterval > ProgressReporter interface > DefaultReportInterval.
func (p *Pipeline) resolveReportInterval() int {
	if p.reportInterval != nil {
		return *p.reportInterval
	}
	if p.progress != nil {
		if n := p.progress.ReportInterval(); n >= 1 {
			return n
		}
	}
	return DefaultReportInterval
}

func (p *Pipeline) resolveLogger() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

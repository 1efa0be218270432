package csvchunk

import "context"

// ReportInterval is the number of delivered messages between two progress
// reports. Pipeline.WithReportInterval wins over it; DefaultReportInterval
// applies when neither is given.
type ReportInterval interface {
	ReportInterval() int
}

// ProgressReporter receives periodic progress updates while batches are being
// delivered.
//
// OnProgress is called each time the cumulative delivered count crosses a
// ReportInterval boundary. It runs on a dispatch goroutine while that task
// still holds its concurrency slot, so it should not block.
//
// Example:
//
//	func (h *hooks) ReportInterval() int { return 1000 }
//
//	func (h *hooks) OnProgress(ctx context.Context, stats *csvchunk.Stats) {
//	    slog.InfoContext(ctx, "progress", "stats", stats)
//	}
type ProgressReporter interface {
	ReportInterval

	OnProgress(ctx context.Context, stats *Stats)
}

package csvchunk

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// Stats provides run counters with thread-safe access.
// Counter fields use atomic operations for safe concurrent access from dispatch
// goroutines.
type Stats struct {
	records    atomic.Int64
	batches    atomic.Int64
	dispatched atomic.Int64
	delivered  atomic.Int64
	failed     atomic.Int64
}

// NewStats creates a Stats holding the given totals. Runs build their own
// Stats; NewStats is for code that receives one, such as tests of Stopper or
// ProgressReporter implementations.
func NewStats(records, batches, dispatched, delivered, failed int64) *Stats {
	s := &Stats{}
	s.records.Store(records)
	s.batches.Store(batches)
	s.dispatched.Store(dispatched)
	s.delivered.Store(delivered)
	s.failed.Store(failed)
	return s
}

// Records returns the number of records in batches accepted for dispatch.
func (s *Stats) Records() int64 { return s.records.Load() }

// Batches returns the number of batches accepted for dispatch.
func (s *Stats) Batches() int64 { return s.batches.Load() }

// Dispatched returns the number of batches whose sends all succeeded.
func (s *Stats) Dispatched() int64 { return s.dispatched.Load() }

// Delivered returns the number of messages the sink accepted.
func (s *Stats) Delivered() int64 { return s.delivered.Load() }

// Failed returns the number of messages the sink rejected or never accepted.
func (s *Stats) Failed() int64 { return s.failed.Load() }

// LogValue implements slog.LogValuer for structured logging.
func (s *Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("records", s.Records()),
		slog.Int64("batches", s.Batches()),
		slog.Int64("dispatched", s.Dispatched()),
		slog.Int64("delivered", s.Delivered()),
		slog.Int64("failed", s.Failed()),
	)
}

// Summary is the success report of a run.
type Summary struct {
	Records int64 `json:"records"`
	Batches int64 `json:"batches"`
}

// Summary returns the records/batches totals.
func (s *Stats) Summary() Summary {
	return Summary{Records: s.Records(), Batches: s.Batches()}
}

// statsJSON is the JSON representation for marshaling Stats.
type statsJSON struct {
	Records    int64 `json:"records"`
	Batches    int64 `json:"batches"`
	Dispatched int64 `json:"dispatched"`
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
}

// MarshalJSON implements json.Marshaler for Stats serialization.
func (s *Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Records:    s.records.Load(),
		Batches:    s.batches.Load(),
		Dispatched: s.dispatched.Load(),
		Delivered:  s.delivered.Load(),
		Failed:     s.failed.Load(),
	})
}

// Internal increment methods. These return the new value after incrementing,
// which keeps progress tracking race-free across concurrent dispatch tasks.
func (s *Stats) incRecords(n int64) int64    { return s.records.Add(n) }
func (s *Stats) incBatches(n int64) int64    { return s.batches.Add(n) }
func (s *Stats) incDispatched(n int64) int64 { return s.dispatched.Add(n) }
func (s *Stats) incDelivered(n int64) int64  { return s.delivered.Add(n) }
func (s *Stats) incFailed(n int64) int64     { return s.failed.Add(n) }

package csvchunk_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sauryaacharya/csvchunk"
)

// =============================================================================
// Test Helpers
// =============================================================================

// csvRows builds a header line followed by n data rows with id=1..n.
func csvRows(n int) string {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,name-%d\n", i, i)
	}
	return b.String()
}

// stringSource serves the same content for every location.
func stringSource(content string) csvchunk.Source {
	return csvchunk.SourceFunc(func(_ context.Context, _ csvchunk.Location) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	})
}

// fakeSink records every call and tracks how many calls run concurrently.
type fakeSink struct {
	mu    sync.Mutex
	calls [][]csvchunk.Message

	delay  time.Duration
	gate   chan struct{}
	reject func(msgs []csvchunk.Message) ([]csvchunk.Failure, error)
	limit  int

	active    atomic.Int64
	maxActive atomic.Int64
}

func (s *fakeSink) SendBatch(ctx context.Context, msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.calls = append(s.calls, msgs)
	s.mu.Unlock()

	if s.reject != nil {
		return s.reject(msgs)
	}
	return nil, nil
}

func (s *fakeSink) callSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, 0, len(s.calls))
	for _, c := range s.calls {
		sizes = append(sizes, len(c))
	}
	return sizes
}

func (s *fakeSink) messageCount() int {
	total := 0
	for _, n := range s.callSizes() {
		total += n
	}
	return total
}

// limitedSink is a fakeSink that advertises a per-call message limit.
type limitedSink struct {
	*fakeSink
}

func (s limitedSink) MaxMessagesPerCall() int { return s.limit }

// containsID reports whether any message body carries the given id field.
func containsID(msgs []csvchunk.Message, id int) bool {
	needle := fmt.Sprintf(`"id":"%d"`, id)
	for _, m := range msgs {
		if strings.Contains(string(m.Body), needle) {
			return true
		}
	}
	return false
}

// makeBatch builds a batch of n records starting at data-row position first.
func makeBatch(seq, first, n int) csvchunk.Batch {
	b := csvchunk.Batch{Seq: seq, FirstPosition: first}
	for i := 0; i < n; i++ {
		b.Records = append(b.Records, csvchunk.Record{
			{Name: "id", Value: fmt.Sprint(first + i)},
		})
	}
	return b
}

package csvchunk_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sauryaacharya/csvchunk"
)

func TestDispatcher_CeilingNeverExceeded(t *testing.T) {
	sink := &fakeSink{delay: 5 * time.Millisecond}
	d := csvchunk.NewDispatcher(sink, 3)

	for i := 1; i <= 20; i++ {
		require.NoError(t, d.Submit(context.Background(), makeBatch(i, (i-1)*10+1, 10)))
		require.LessOrEqual(t, d.Outstanding(), int64(3))
	}
	require.NoError(t, d.Drain())

	require.LessOrEqual(t, sink.maxActive.Load(), int64(3))
	require.LessOrEqual(t, d.Peak(), int64(3))
	require.Equal(t, int64(0), d.Outstanding())
	require.Len(t, sink.callSizes(), 20)
	require.Equal(t, int64(20), d.Stats().Dispatched())
	require.Equal(t, int64(200), d.Stats().Delivered())
}

func TestDispatcher_SubmitBlocksAtCeiling(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gate: gate}
	d := csvchunk.NewDispatcher(sink, 2)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 1, 1)))
	require.NoError(t, d.Submit(ctx, makeBatch(2, 2, 1)))
	require.Equal(t, int64(2), d.Outstanding())

	submitted := make(chan error, 1)
	go func() {
		submitted <- d.Submit(ctx, makeBatch(3, 3, 1))
	}()

	select {
	case <-submitted:
		t.Fatal("Submit returned while the ceiling was reached")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, int64(2), d.Outstanding())

	close(gate)
	require.NoError(t, <-submitted)
	require.NoError(t, d.Drain())
	require.Equal(t, int64(2), d.Peak())
	require.Len(t, sink.callSizes(), 3)
}

func TestDispatcher_PartialFailure(t *testing.T) {
	var rejectedIDs []string
	sink := &fakeSink{
		reject: func(msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
			if !containsID(msgs, 11) {
				return nil, nil
			}
			rejectedIDs = []string{msgs[0].ID, msgs[1].ID}
			return []csvchunk.Failure{
				{ID: msgs[0].ID, Code: "InvalidMessageContents"},
				{ID: msgs[1].ID, Code: "InvalidMessageContents"},
			}, nil
		},
	}
	d := csvchunk.NewDispatcher(sink, 1)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 1, 10)))
	require.NoError(t, d.Submit(ctx, makeBatch(2, 11, 10)))
	// The run has failed; the third batch is refused.
	err := d.Submit(ctx, makeBatch(3, 21, 5))
	require.ErrorIs(t, err, csvchunk.ErrDispatch)

	err = d.Drain()
	require.ErrorIs(t, err, csvchunk.ErrDispatch)

	var e *csvchunk.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, 2, e.Batch)
	require.Equal(t, rejectedIDs, e.MessageIDs)

	stats := d.Stats()
	require.Equal(t, int64(1), stats.Dispatched())
	require.Equal(t, int64(18), stats.Delivered())
	require.Equal(t, int64(2), stats.Failed())
}

func TestDispatcher_InFlightSettleAfterFailure(t *testing.T) {
	errSink := errors.New("queue unavailable")
	var slowDone atomic.Bool
	sink := &fakeSink{
		reject: func(msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
			if containsID(msgs, 1) {
				return nil, errSink
			}
			time.Sleep(30 * time.Millisecond)
			slowDone.Store(true)
			return nil, nil
		},
	}
	d := csvchunk.NewDispatcher(sink, 4)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 2, 1)))
	require.NoError(t, d.Submit(ctx, makeBatch(2, 1, 1)))

	err := d.Drain()
	require.ErrorIs(t, err, errSink)
	require.ErrorIs(t, err, csvchunk.ErrDispatch)
	require.True(t, slowDone.Load(), "in-flight send must finish before Drain returns")
	require.Equal(t, int64(1), d.Stats().Dispatched())
}

func TestDispatcher_FirstFailureWins(t *testing.T) {
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	sink := &fakeSink{
		reject: func(msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
			if containsID(msgs, 1) {
				return nil, errFirst
			}
			time.Sleep(20 * time.Millisecond)
			return nil, errSecond
		},
	}
	d := csvchunk.NewDispatcher(sink, 2)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 1, 1)))
	require.NoError(t, d.Submit(ctx, makeBatch(2, 2, 1)))

	err := d.Drain()
	require.ErrorIs(t, err, errFirst)
	require.NotErrorIs(t, err, errSecond)
}

func TestDispatcher_Abort(t *testing.T) {
	errParse := &csvchunk.Error{Kind: csvchunk.KindParse, Position: 15}
	sink := &fakeSink{}
	d := csvchunk.NewDispatcher(sink, 2)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 1, 10)))
	require.True(t, d.Abort(errParse))
	require.False(t, d.Abort(errors.New("later")))

	require.ErrorIs(t, d.Submit(ctx, makeBatch(2, 11, 4)), csvchunk.ErrParse)
	require.ErrorIs(t, d.Drain(), csvchunk.ErrParse)
	require.Equal(t, []int{10}, sink.callSizes())
}

func TestDispatcher_AbortUnblocksSubmit(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gate: gate}
	d := csvchunk.NewDispatcher(sink, 1)

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, makeBatch(1, 1, 1)))

	submitted := make(chan error, 1)
	go func() {
		submitted <- d.Submit(ctx, makeBatch(2, 2, 1))
	}()

	errAbort := errors.New("abort")
	time.Sleep(10 * time.Millisecond)
	d.Abort(errAbort)
	require.ErrorIs(t, <-submitted, errAbort)

	close(gate)
	require.ErrorIs(t, d.Drain(), errAbort)
	require.Equal(t, []int{1}, sink.callSizes())
}

func TestDispatcher_ContextCancelledWhileWaiting(t *testing.T) {
	gate := make(chan struct{})
	sink := &fakeSink{gate: gate}
	d := csvchunk.NewDispatcher(sink, 1)

	require.NoError(t, d.Submit(context.Background(), makeBatch(1, 1, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Submit(ctx, makeBatch(2, 2, 1)), context.DeadlineExceeded)

	close(gate)
	require.NoError(t, d.Drain())
}

func TestDispatcher_SplitsByMessageLimit(t *testing.T) {
	sink := limitedSink{&fakeSink{limit: 4}}
	d := csvchunk.NewDispatcher(sink, 1)

	require.NoError(t, d.Submit(context.Background(), makeBatch(1, 1, 10)))
	require.NoError(t, d.Drain())
	require.Equal(t, []int{4, 4, 2}, sink.callSizes())
	require.Equal(t, int64(1), d.Stats().Dispatched())
}

func TestDispatcher_RateLimit(t *testing.T) {
	sink := &fakeSink{}
	d := csvchunk.NewDispatcher(sink, 5).WithRateLimit(1000)

	for i := 1; i <= 5; i++ {
		require.NoError(t, d.Submit(context.Background(), makeBatch(i, i, 1)))
	}
	require.NoError(t, d.Drain())
	require.Equal(t, 5, sink.messageCount())
}

func TestNewDispatcher_DefaultCeiling(t *testing.T) {
	d := csvchunk.NewDispatcher(&fakeSink{}, 0)
	require.Equal(t, csvchunk.DefaultConcurrency, d.Ceiling())
}

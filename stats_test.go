package csvchunk_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sauryaacharya/csvchunk"
)

func TestStats_NewStats(t *testing.T) {
	stats := csvchunk.NewStats(25, 3, 3, 25, 0)
	require.Equal(t, int64(25), stats.Records())
	require.Equal(t, int64(3), stats.Batches())
	require.Equal(t, int64(3), stats.Dispatched())
	require.Equal(t, int64(25), stats.Delivered())
	require.Equal(t, int64(0), stats.Failed())
}

func TestStats_MarshalJSON(t *testing.T) {
	stats := csvchunk.NewStats(25, 3, 2, 23, 2)
	data, err := stats.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"records":25,"batches":3,"dispatched":2,"delivered":23,"failed":2}`, string(data))
}

func TestStats_Summary(t *testing.T) {
	stats := csvchunk.NewStats(25, 3, 3, 25, 0)
	require.Equal(t, csvchunk.Summary{Records: 25, Batches: 3}, stats.Summary())
}

func TestStats_LogValue(t *testing.T) {
	v := csvchunk.NewStats(1, 1, 1, 1, 0).LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())
	require.Len(t, v.Group(), 5)
}

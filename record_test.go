package csvchunk_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sauryaacharya/csvchunk"
)

func TestRecord_Get(t *testing.T) {
	rec := csvchunk.Record{{Name: "id", Value: "7"}, {Name: "name", Value: ""}}

	v, ok := rec.Get("id")
	require.True(t, ok)
	require.Equal(t, "7", v)

	v, ok = rec.Get("name")
	require.True(t, ok)
	require.Empty(t, v)

	_, ok = rec.Get("missing")
	require.False(t, ok)
}

func TestRecord_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		record   csvchunk.Record
		expected string
	}{
		{name: "empty", record: csvchunk.Record{}, expected: `{}`},
		{name: "header order", record: csvchunk.Record{{Name: "b", Value: "1"}, {Name: "a", Value: "2"}}, expected: `{"b":"1","a":"2"}`},
		{name: "escaping", record: csvchunk.Record{{Name: "note", Value: "say \"hi\"\n"}}, expected: `{"note":"say \"hi\"\n"}`},
		{name: "values stay strings", record: csvchunk.Record{{Name: "n", Value: "42"}}, expected: `{"n":"42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.record)
			require.NoError(t, err)
			require.Equal(t, tt.expected, string(got))
		})
	}
}

func TestSerialize(t *testing.T) {
	batch := makeBatch(1, 1, 3)

	first, err := csvchunk.Serialize(batch)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := csvchunk.Serialize(batch)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := range first {
		require.Equal(t, first[i].Body, second[i].Body, "bodies are deterministic")
		require.NotEqual(t, first[i].ID, second[i].ID, "ids are fresh per serialization")

		_, err := uuid.Parse(first[i].ID)
		require.NoError(t, err)
		require.False(t, seen[first[i].ID])
		seen[first[i].ID] = true
	}
	require.Equal(t, `{"id":"1"}`, string(first[0].Body))
	require.Equal(t, `{"id":"3"}`, string(first[2].Body))
}

func TestSerialize_EmptyBatch(t *testing.T) {
	msgs, err := csvchunk.Serialize(csvchunk.Batch{Seq: 1})
	require.NoError(t, err)
	require.Empty(t, msgs)
}

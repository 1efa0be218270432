package csvchunk

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Field is one named value of a record.
type Field struct {
	Name  string
	Value string
}

// Record is one data row keyed by the header's field names. Fields keep the
// header's column order.
type Record []Field

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes the record as a JSON object whose keys follow the
// header order, so an unchanged record always encodes to the same bytes.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Batch is an ordered group of records sent together.
type Batch struct {
	// Seq is the 1-based emission order of the batch within a run.
	Seq int

	// FirstPosition is the 1-based data-row index of Records[0].
	FirstPosition int

	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.Records) }

// Message is one queue message carrying one serialized record.
type Message struct {
	ID   string
	Body []byte
}

// Serialize converts a batch into one message per record, each with a newly
// generated identifier. Bodies are deterministic: serializing an unchanged
// batch twice yields identical bodies.
func Serialize(b Batch) ([]Message, error) {
	msgs := make([]Message, 0, len(b.Records))
	for i, rec := range b.Records {
		body, err := rec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", b.FirstPosition+i, err)
		}
		msgs = append(msgs, Message{ID: uuid.NewString(), Body: body})
	}
	return msgs, nil
}

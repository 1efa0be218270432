package csvchunk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

const utf8BOM = "\ufeff"

// Batcher parses a delimited-text stream into records and groups them into
// fixed-size batches.
type Batcher struct {
	size      int
	delimiter rune
}

// NewBatcher creates a Batcher emitting batches of size records split on
// delimiter. A size below 1 falls back to DefaultBatchSize and a zero
// delimiter to DefaultDelimiter.
func NewBatcher(size int, delimiter rune) *Batcher {
	if size < 1 {
		size = DefaultBatchSize
	}
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &Batcher{size: size, delimiter: delimiter}
}

// Size returns the configured batch size.
func (b *Batcher) Size() int { return b.size }

// Batches returns a lazy, single-use sequence of batches read from r.
//
// The first line of r names the fields of every following line. Each time
// size records have accumulated the batch is yielded; the remainder is
// yielded once at end of input. An empty trailing batch is never yielded, so
// an empty input or a header-only input yields nothing.
//
// Input is read only while the consumer is ready for more: a consumer that
// blocks inside its loop body holds back the parser. A malformed line or a
// read error yields a single *Error of KindParse and ends the sequence;
// records buffered since the last yielded batch are discarded.
func (b *Batcher) Batches(r io.Reader) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		cr := csv.NewReader(r)
		cr.Comma = b.delimiter

		header, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(Batch{}, parseError(0, err))
			return
		}

		names, err := headerNames(header)
		if err != nil {
			yield(Batch{}, &Error{Kind: KindParse, Line: 1, Err: err})
			return
		}

		var (
			seq      int
			position int
			buf      = make([]Record, 0, b.size)
		)

		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(Batch{}, parseError(position+1, err))
				return
			}
			position++

			rec := make(Record, len(names))
			for i, name := range names {
				rec[i] = Field{Name: name, Value: row[i]}
			}
			buf = append(buf, rec)

			if len(buf) == b.size {
				seq++
				if !yield(Batch{Seq: seq, FirstPosition: position - len(buf) + 1, Records: buf}, nil) {
					return
				}
				buf = make([]Record, 0, b.size)
			}
		}

		if len(buf) > 0 {
			seq++
			yield(Batch{Seq: seq, FirstPosition: position - len(buf) + 1, Records: buf}, nil)
		}
	}
}

// headerNames validates the header line and returns the field names.
func headerNames(header []string) ([]string, error) {
	names := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("empty header in column %d", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate header %q", name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names, nil
}

// parseError wraps a csv or read error with the offending record position.
func parseError(position int, err error) *Error {
	e := &Error{Kind: KindParse, Position: position, Err: err}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		e.Line = pe.Line
	}
	return e
}

package csvchunk

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindRetrieval     Kind = "retrieval"
	KindParse         Kind = "parse"
	KindDispatch      Kind = "dispatch"
	KindConfiguration Kind = "configuration"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrRetrieval     = errors.New("csvchunk: retrieval failed")
	ErrParse         = errors.New("csvchunk: parse failed")
	ErrDispatch      = errors.New("csvchunk: dispatch failed")
	ErrConfiguration = errors.New("csvchunk: invalid configuration")
)

// Error is the single error type surfaced by a pipeline run.
//
// Batch is the 1-based sequence number of the batch involved (dispatch
// failures). Position is the 1-based data-row index and Line the input line
// (parse failures). MessageIDs lists the messages a sink rejected.
type Error struct {
	Kind       Kind
	Location   Location
	Batch      int
	Position   int
	Line       int
	MessageIDs []string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Location != (Location{}) {
		fmt.Fprintf(&b, " for %s", e.Location)
	}
	if e.Batch > 0 {
		fmt.Fprintf(&b, " in batch %d", e.Batch)
	}
	if e.Position > 0 {
		fmt.Fprintf(&b, " at record %d", e.Position)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if len(e.MessageIDs) > 0 {
		fmt.Fprintf(&b, ": %d message(s) rejected [%s]", len(e.MessageIDs), strings.Join(e.MessageIDs, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRetrieval:
		return e.Kind == KindRetrieval
	case ErrParse:
		return e.Kind == KindParse
	case ErrDispatch:
		return e.Kind == KindDispatch
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

// ConfigError builds a configuration error for a missing or invalid setting.
func ConfigError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// firstError keeps the first error recorded by any goroutine of a run.
type firstError struct {
	mu  sync.Mutex
	err error
}

// set records err if no error has been recorded yet and reports whether it
// did.
func (f *firstError) set(err error) bool {
	if err == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false
	}
	f.err = err
	return true
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

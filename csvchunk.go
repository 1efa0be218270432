package csvchunk

import (
	"context"
	"io"
)

// Location names one object in an object store.
type Location struct {
	Container string
	Path      string
}

func (l Location) String() string {
	return l.Container + "/" + l.Path
}

// Source opens the raw byte stream of an object. It knows nothing about the
// content format.
//
// Open must report missing objects and denied access before returning, so
// that the pipeline can fail with a retrieval error before any parsing
// begins. The pipeline closes the returned reader.
type Source interface {
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
}

// Sink transmits messages to a queue in a single call.
//
// A non-nil error means the call failed wholesale and no message was
// accepted. A nil error with a non-empty failure slice means the sink
// accepted the call but rejected the listed messages.
//
// Sinks that impose per-call limits implement [MessageLimiter] and
// [PayloadLimiter]; the dispatcher splits each batch so that no call exceeds
// them.
type Sink interface {
	SendBatch(ctx context.Context, msgs []Message) ([]Failure, error)
}

// MessageLimiter reports the maximum number of messages a sink accepts per
// call.
//
// Example:
//
//	func (s *Sink) MaxMessagesPerCall() int { return 10 }
type MessageLimiter interface {
	MaxMessagesPerCall() int
}

// PayloadLimiter reports the maximum total body size, in bytes, a sink
// accepts per call. A single message larger than the limit is still sent on
// its own and left for the sink to reject.
type PayloadLimiter interface {
	MaxPayloadBytes() int
}

// Failure describes one message the sink rejected.
type Failure struct {
	ID      string
	Code    string
	Message string
}

// SinkFunc adapts a plain function to the [Sink] interface.
type SinkFunc func(ctx context.Context, msgs []Message) ([]Failure, error)

func (f SinkFunc) SendBatch(ctx context.Context, msgs []Message) ([]Failure, error) {
	return f(ctx, msgs)
}

// SourceFunc adapts a plain function to the [Source] interface.
type SourceFunc func(ctx context.Context, loc Location) (io.ReadCloser, error)

func (f SourceFunc) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	return f(ctx, loc)
}

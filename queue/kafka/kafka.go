// Package kafka sends csvchunk messages to a Kafka or Redpanda topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sauryaacharya/csvchunk"
)

// Scheme prefixes queue URLs handled by this package.
const Scheme = "kafka://"

// HeaderMessageID carries the message identifier on every record.
const HeaderMessageID = "message-id"

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Target is a parsed queue URL of the form kafka://host1:9092,host2:9092/topic.
type Target struct {
	Brokers []string
	Topic   string
}

// ParseURL parses a kafka:// queue URL.
func ParseURL(raw string) (Target, error) {
	rest, ok := strings.CutPrefix(raw, Scheme)
	if !ok {
		return Target{}, fmt.Errorf("kafka url %q: missing %s prefix", raw, Scheme)
	}
	hosts, topic, _ := strings.Cut(rest, "/")
	topic = strings.Trim(topic, "/")
	if topic == "" {
		return Target{}, fmt.Errorf("kafka url %q: missing topic", raw)
	}

	var brokers []string
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			brokers = append(brokers, h)
		}
	}
	if len(brokers) == 0 {
		return Target{}, fmt.Errorf("kafka url %q: missing brokers", raw)
	}
	return Target{Brokers: brokers, Topic: topic}, nil
}

// NewWriter creates a synchronous writer for t that waits for all in-sync
// replicas.
func NewWriter(t Target) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(t.Brokers...),
		Topic:        t.Topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Sink writes each call as one WriteMessages request.
type Sink struct {
	writer   Writer
	maxBytes int
}

var (
	_ csvchunk.Sink           = (*Sink)(nil)
	_ csvchunk.PayloadLimiter = (*Sink)(nil)
)

// New creates a sink writing through w. When w is a *kafka.Writer with
// BatchBytes set, calls are kept under that size.
func New(w Writer) *Sink {
	s := &Sink{writer: w}
	if kw, ok := w.(*kafka.Writer); ok && kw.BatchBytes > 0 {
		s.maxBytes = int(kw.BatchBytes)
	}
	return s
}

func (s *Sink) MaxPayloadBytes() int { return s.maxBytes }

// SendBatch writes msgs keyed by message ID. Per-message errors reported by
// the writer become failures; any other error fails the call wholesale.
func (s *Sink) SendBatch(ctx context.Context, msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	records := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		records[i] = kafka.Message{
			Key:     []byte(m.ID),
			Value:   m.Body,
			Headers: []kafka.Header{{Key: HeaderMessageID, Value: []byte(m.ID)}},
		}
	}

	err := s.writer.WriteMessages(ctx, records...)
	if err == nil {
		return nil, nil
	}

	var werrs kafka.WriteErrors
	if !errors.As(err, &werrs) || len(werrs) != len(msgs) {
		return nil, fmt.Errorf("write messages: %w", err)
	}

	var failures []csvchunk.Failure
	for i, werr := range werrs {
		if werr == nil {
			continue
		}
		failures = append(failures, csvchunk.Failure{
			ID:      msgs[i].ID,
			Code:    errorCode(werr),
			Message: werr.Error(),
		})
	}
	return failures, nil
}

// Close flushes and closes the writer.
func (s *Sink) Close() error { return s.writer.Close() }

func errorCode(err error) string {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Title()
	}
	return "WriteFailed"
}

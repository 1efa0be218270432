// Package sqs sends csvchunk messages to an Amazon SQS queue with
// SendMessageBatch.
package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/sauryaacharya/csvchunk"
)

// SendMessageBatch limits.
const (
	MaxEntries      = 10
	MaxPayloadBytes = 256 * 1024
)

// API is the subset of the SQS client the sink uses.
type API interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// Sink sends each call as one SendMessageBatch request.
type Sink struct {
	client   API
	queueURL string
}

var (
	_ csvchunk.Sink           = (*Sink)(nil)
	_ csvchunk.MessageLimiter = (*Sink)(nil)
	_ csvchunk.PayloadLimiter = (*Sink)(nil)
)

// New creates a sink for the queue at queueURL.
func New(client API, queueURL string) *Sink {
	return &Sink{client: client, queueURL: queueURL}
}

func (s *Sink) MaxMessagesPerCall() int { return MaxEntries }

func (s *Sink) MaxPayloadBytes() int { return MaxPayloadBytes }

// SendBatch sends msgs and returns the entries SQS reported as failed.
// Entries that SQS neither acknowledged nor rejected are reported as failed.
func (s *Sink) SendBatch(ctx context.Context, msgs []csvchunk.Message) ([]csvchunk.Failure, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	entries := make([]types.SendMessageBatchRequestEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = types.SendMessageBatchRequestEntry{
			Id:          aws.String(m.ID),
			MessageBody: aws.String(string(m.Body)),
		}
	}

	out, err := s.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(s.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return nil, fmt.Errorf("send message batch: %w", err)
	}

	answered := make(map[string]bool, len(msgs))
	var failures []csvchunk.Failure
	for _, f := range out.Failed {
		id := aws.ToString(f.Id)
		answered[id] = true
		failures = append(failures, csvchunk.Failure{
			ID:      id,
			Code:    aws.ToString(f.Code),
			Message: aws.ToString(f.Message),
		})
	}
	for _, ok := range out.Successful {
		answered[aws.ToString(ok.Id)] = true
	}
	for _, m := range msgs {
		if !answered[m.ID] {
			failures = append(failures, csvchunk.Failure{ID: m.ID, Code: "Unacknowledged"})
		}
	}

	return failures, nil
}

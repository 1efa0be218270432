package main

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/sauryaacharya/csvchunk"
	"github.com/sauryaacharya/csvchunk/internal/config"
	"github.com/sauryaacharya/csvchunk/queue/kafka"
	"github.com/sauryaacharya/csvchunk/queue/sqs"
)

// newSink selects the sink from the queue URL scheme. The returned function
// releases the sink's connections.
func newSink(ctx context.Context, cfg *config.Config) (csvchunk.Sink, func() error, error) {
	switch {
	case strings.HasPrefix(cfg.QueueURL, kafka.Scheme):
		target, err := kafka.ParseURL(cfg.QueueURL)
		if err != nil {
			return nil, nil, csvchunk.ConfigError("QUEUE_URL: %v", err)
		}
		sink := kafka.New(kafka.NewWriter(target))
		return sink, sink.Close, nil

	case strings.HasPrefix(cfg.QueueURL, "https://"), strings.HasPrefix(cfg.QueueURL, "http://"):
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		return sqs.New(awssqs.NewFromConfig(awsCfg), cfg.QueueURL), func() error { return nil }, nil
	}

	return nil, nil, csvchunk.ConfigError("QUEUE_URL %q: unsupported scheme", cfg.QueueURL)
}

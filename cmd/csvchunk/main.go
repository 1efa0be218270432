// Command csvchunk batches the delimited-text object named by a storage
// event into a message queue. It runs as an AWS Lambda function, or once
// against a local event file with -event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sauryaacharya/csvchunk/handler"
	"github.com/sauryaacharya/csvchunk/internal/config"
	"github.com/sauryaacharya/csvchunk/objectstore"
)

func main() {
	eventFile := flag.String("event", "", "process the event in this JSON file once and exit")
	flag.Parse()

	if err := run(*eventFile); err != nil {
		slog.Error("csvchunk failed", "error", err)
		os.Exit(1)
	}
}

func run(eventFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := objectstore.New(cfg.ObjectStoreEndpoint, cfg.Region)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}
	sink, closeSink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Warn("closing sink", "error", err)
		}
	}()

	h := handler.New(source, sink, handler.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Delimiter:   cfg.Delimiter,
		SendRate:    cfg.DispatchRate,
		Logger:      logger,
	})

	logger.Info("csvchunk starting",
		"batch_size", cfg.BatchSize,
		"concurrency", cfg.Concurrency,
		"local", eventFile != "",
	)

	if eventFile == "" {
		lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx))
		return nil
	}

	data, err := os.ReadFile(eventFile)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}
	summary, err := h.Handle(ctx, json.RawMessage(data))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(summary)
}

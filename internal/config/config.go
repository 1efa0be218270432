// Package config loads process configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/sauryaacharya/csvchunk"
)

// Config holds the settings of one process.
type Config struct {
	// QueueURL selects the sink: an SQS queue URL or kafka://brokers/topic.
	QueueURL string

	BatchSize   int
	Concurrency int
	Delimiter   rune

	// DispatchRate caps sink calls per second; 0 leaves sends uncapped.
	DispatchRate float64

	// ObjectStoreEndpoint overrides the S3 endpoint. file:///dir serves
	// objects from a local directory.
	ObjectStoreEndpoint string
	Region              string

	LogLevel slog.Level
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set take precedence over the
// file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the current environment without consulting .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		QueueURL:            strings.TrimSpace(os.Getenv("QUEUE_URL")),
		ObjectStoreEndpoint: getEnv("OBJECT_STORE_ENDPOINT", ""),
		Region:              getEnv("AWS_REGION", getEnv("AWS_DEFAULT_REGION", "")),
	}
	if cfg.QueueURL == "" {
		return nil, csvchunk.ConfigError("QUEUE_URL is required")
	}

	var err error
	if cfg.BatchSize, err = getEnvInt("BATCH_SIZE", csvchunk.DefaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = getEnvInt("CONCURRENCY", csvchunk.DefaultConcurrency); err != nil {
		return nil, err
	}
	if cfg.Delimiter, err = getEnvDelimiter("CSV_DELIMITER", csvchunk.DefaultDelimiter); err != nil {
		return nil, err
	}
	if cfg.DispatchRate, err = getEnvFloat("DISPATCH_RATE", 0); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return nil, csvchunk.ConfigError("LOG_LEVEL: %v", err)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return 0, csvchunk.ConfigError("%s must be a positive integer, got %q", key, val)
	}
	return i, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return 0, csvchunk.ConfigError("%s must be a non-negative number, got %q", key, val)
	}
	return f, nil
}

// getEnvDelimiter accepts a single character or the name "tab".
func getEnvDelimiter(key string, defaultVal rune) (rune, error) {
	val := os.Getenv(key)
	switch {
	case val == "":
		return defaultVal, nil
	case strings.EqualFold(val, "tab") || val == `\t`:
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(val)
	if size != len(val) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, csvchunk.ConfigError("%s must be a single character, got %q", key, val)
	}
	return r, nil
}

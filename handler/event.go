package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/sauryaacharya/csvchunk"
)

// ErrNoObject is returned for events that reference no object.
var ErrNoObject = errors.New("event references no object")

// objectCreatedDetail is the detail of an EventBridge "Object Created" event.
type objectCreatedDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

// envelope holds the fields used to tell event shapes apart.
type envelope struct {
	Records    []json.RawMessage `json:"Records"`
	DetailType string            `json:"detail-type"`
	Detail     json.RawMessage   `json:"detail"`
}

// ParseEvent extracts the object locations referenced by an S3 notification
// or an EventBridge "Object Created" event. Keys in S3 notifications are
// form-encoded and are decoded here.
func ParseEvent(raw json.RawMessage) ([]csvchunk.Location, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch {
	case len(env.Records) > 0:
		return parseS3Event(raw)
	case len(env.Detail) > 0:
		return parseEventBridge(env)
	}
	return nil, ErrNoObject
}

func parseS3Event(raw json.RawMessage) ([]csvchunk.Location, error) {
	var event events.S3Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode s3 event: %w", err)
	}

	locs := make([]csvchunk.Location, 0, len(event.Records))
	for i, rec := range event.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("record %d: decode key %q: %w", i, rec.S3.Object.Key, err)
		}
		if rec.S3.Bucket.Name == "" || key == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrNoObject)
		}
		locs = append(locs, csvchunk.Location{Container: rec.S3.Bucket.Name, Path: key})
	}
	return locs, nil
}

func parseEventBridge(env envelope) ([]csvchunk.Location, error) {
	var detail objectCreatedDetail
	if err := json.Unmarshal(env.Detail, &detail); err != nil {
		return nil, fmt.Errorf("decode %q detail: %w", env.DetailType, err)
	}
	if detail.Bucket.Name == "" || detail.Object.Key == "" {
		return nil, ErrNoObject
	}
	return []csvchunk.Location{{Container: detail.Bucket.Name, Path: detail.Object.Key}}, nil
}

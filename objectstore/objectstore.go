// Package objectstore provides csvchunk sources backed by an S3-compatible
// bucket or a local directory.
package objectstore

import (
	"strings"

	"github.com/sauryaacharya/csvchunk"
)

// New selects a source for endpoint. A file:// endpoint serves from the local
// directory it names; anything else is treated as an S3-compatible endpoint.
// An empty endpoint targets AWS S3 in region.
func New(endpoint, region string) (csvchunk.Source, error) {
	if dir, ok := strings.CutPrefix(endpoint, "file://"); ok {
		return NewLocalStore(dir), nil
	}
	if endpoint == "" {
		endpoint = "https://s3.amazonaws.com"
		if region != "" {
			endpoint = "https://s3." + region + ".amazonaws.com"
		}
	}
	return NewS3Store(Config{Endpoint: endpoint, Region: region})
}

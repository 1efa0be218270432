package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sauryaacharya/csvchunk"
)

// Config describes an S3-compatible endpoint.
type Config struct {
	// Endpoint is a URL such as https://s3.eu-west-1.amazonaws.com or
	// http://localhost:9000. The scheme selects TLS.
	Endpoint string

	Region string

	// Static credentials. When both are empty the environment and the
	// instance role are used, in that order.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3Store reads objects from an S3-compatible bucket through minio-go.
type S3Store struct {
	client *minio.Client
}

var _ csvchunk.Source = (*S3Store)(nil)

// NewS3Store creates a store for the endpoint in cfg.
func NewS3Store(cfg Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, wrapError(CodeEndpointUnreachable, false, fmt.Errorf("endpoint is required"))
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, false, fmt.Errorf("invalid endpoint URL: %w", err))
	}
	host := u.Host
	if host == "" {
		host = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentialsFor(cfg),
		Secure: u.Scheme == "https",
		Region: cfg.Region,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, false, fmt.Errorf("create minio client: %w", err))
	}

	return &S3Store{client: client}, nil
}

func credentialsFor(cfg Config) *credentials.Credentials {
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		return credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// Open stats the object so that a missing key or denied access fails here,
// then returns a reader pinned to the stat'd version.
func (s *S3Store) Open(ctx context.Context, loc csvchunk.Location) (io.ReadCloser, error) {
	if loc.Container == "" {
		return nil, wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	if loc.Path == "" {
		return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("object key is required"))
	}

	info, err := s.client.StatObject(ctx, loc.Container, loc.Path, minio.StatObjectOptions{})
	if err != nil {
		return nil, classify(err)
	}

	opts := minio.GetObjectOptions{}
	if info.ETag != "" {
		_ = opts.SetMatchETag(info.ETag)
	}
	obj, err := s.client.GetObject(ctx, loc.Container, loc.Path, opts)
	if err != nil {
		return nil, classify(err)
	}
	return &objectReader{obj: obj}, nil
}

// objectReader classifies errors surfacing mid-stream.
type objectReader struct {
	obj *minio.Object
}

func (r *objectReader) Read(p []byte) (int, error) {
	n, err := r.obj.Read(p)
	if err != nil && err != io.EOF {
		return n, classify(err)
	}
	return n, err
}

func (r *objectReader) Close() error { return r.obj.Close() }

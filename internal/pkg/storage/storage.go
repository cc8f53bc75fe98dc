// Package storage writes operator exports to object storage and hands back
// time-limited download links.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrMissingSigner = errors.New("storage: signed url signer not configured")
	ErrUnknownDriver = errors.New("storage: unknown driver")
)

// Storage is bound to one bucket.
type Storage interface {
	io.Closer
	// Put uploads r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PresignGet returns a download URL valid for expiry.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const (
	DriverS3    = "s3"
	DriverGCS   = "gcs"
	DriverMinIO = "minio"
)

type Options struct {
	Driver string
	Bucket string

	// S3 and MinIO
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	UseSSL       bool

	// GCS signing
	GoogleAccessID string
	PrivateKey     []byte
}

func NewFromDriver(ctx context.Context, opts Options) (Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}

	switch strings.ToLower(opts.Driver) {
	case DriverS3:
		return NewS3(ctx, opts)
	case DriverGCS:
		return NewGCS(ctx, opts)
	case DriverMinIO:
		return NewMinIO(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opts.Driver)
	}
}

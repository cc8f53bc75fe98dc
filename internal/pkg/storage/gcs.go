package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

type GCS struct {
	bucket   string
	client   *gcs.Client
	accessID string
	key      []byte
}

func NewGCS(ctx context.Context, opts Options) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCS{bucket: opts.Bucket, client: client, accessID: opts.GoogleAccessID, key: opts.PrivateKey}, nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		return errors.Join(err, w.Close())
	}
	return w.Close()
}

func (g *GCS) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if g.accessID == "" || len(g.key) == 0 {
		return "", ErrMissingSigner
	}
	return gcs.SignedURL(g.bucket, key, &gcs.SignedURLOptions{
		Method:         http.MethodGet,
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.accessID,
		PrivateKey:     g.key,
	})
}

func (g *GCS) Close() error {
	return g.client.Close()
}

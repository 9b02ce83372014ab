package objectstore

import (
	"context"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
)

// GCS stores avatars in a Google Cloud Storage bucket with public read access.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket}
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	return helpers.UploadObject(ctx, g.client, g.bucket, key, contentType, r)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	return helpers.DeleteObject(ctx, g.client, g.bucket, key)
}

func (g *GCS) URL(key string) string {
	return helpers.PublicURL(g.bucket, key)
}

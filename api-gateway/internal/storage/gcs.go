package storage

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

const DefaultPublicURL = "https://storage.googleapis.com"

// QRStore writes QR images to a bucket with uniform bucket-level access; objects
// are public through the bucket policy, not per-object ACLs.
type QRStore struct {
	bucket    *storage.BucketHandle
	name      string
	publicURL string
}

func NewQRStore(client *storage.Client, bucket, publicURL string) *QRStore {
	if publicURL == "" {
		publicURL = DefaultPublicURL
	}
	return &QRStore{
		bucket:    client.Bucket(bucket),
		name:      bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func ObjectPath(linkID string) string {
	return "qr-codes/" + linkID + ".png"
}

// URL is the public address of the QR image for linkID.
func (s *QRStore) URL(linkID string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.name, ObjectPath(linkID))
}

// Put uploads the image. Re-uploading the same link id overwrites the object.
func (s *QRStore) Put(ctx context.Context, linkID string, png []byte) (string, error) {
	w := s.bucket.Object(ObjectPath(linkID)).NewWriter(ctx)
	w.ContentType = "image/png"
	w.CacheControl = "public, max-age=86400"
	w.ChunkSize = 0

	if _, err := w.Write(png); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", ObjectPath(linkID), err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", ObjectPath(linkID), err)
	}
	return s.URL(linkID), nil
}

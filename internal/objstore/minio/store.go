package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// Options describe an S3-compatible endpoint (MinIO, Ceph, ArvanCloud...).
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Store implements objstore.Store on top of minio-go.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore creates a MinIO client and makes sure the bucket exists.
func NewStore(ctx context.Context, bucket string, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

// Put implements objstore.Store. An unknown size is resolved before writing:
// minio-go streams such bodies as multipart uploads with very large part buffers.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if size < 0 {
		var err error
		if body, size, err = resolveSize(body); err != nil {
			return fmt.Errorf("put object %q: %w", key, err)
		}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// resolveSize measures a seekable body in place and buffers anything else.
func resolveSize(body io.Reader) (io.Reader, int64, error) {
	if seeker, ok := body.(io.Seeker); ok {
		cur, err := seeker.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := seeker.Seek(0, io.SeekEnd)
			if err != nil {
				return nil, 0, fmt.Errorf("measure body: %w", err)
			}
			if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
				return nil, 0, fmt.Errorf("rewind body: %w", err)
			}
			return body, end - cur, nil
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// List implements objstore.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Close implements objstore.Store. minio clients hold no resources to release.
func (s *Store) Close() error {
	return nil
}

var _ objstore.Store = (*Store)(nil)

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Options tune the GCS client. The zero value uses Application Default Credentials
// (gcloud auth application-default login) against the production endpoint.
type Options struct {
	// Endpoint overrides the JSON API endpoint, e.g. for fake-gcs-server.
	Endpoint string

	// Anonymous disables authentication. Only meaningful with Endpoint.
	Anonymous bool
}

// Store is the Google Cloud Storage implementation of objstore.Store.
// It holds one long-lived client for the lifetime of the process.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewStore creates a storage client bound to bucketName.
func NewStore(ctx context.Context, bucketName string, opts Options) (*Store, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("gcs: bucket name is required")
	}

	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	if opts.Anonymous {
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Store{
		client: client,
		bucket: client.Bucket(bucketName),
		name:   bucketName,
	}, nil
}

// Put implements objstore.Store.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		// Cancelling the context aborts the resumable upload before Close.
		cancel()
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer %q: %w", key, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %q: %w", key, err)
	}

	return nil
}

// List implements objstore.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	query := &storage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", s.name, prefix, err)
	}

	it := s.bucket.Objects(ctx, query)

	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

// SignedURL implements objstore.Signer using V4 signing.
// Signing needs service account credentials (or IAM signBlob permission).
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	url, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign %s/%s: %w", s.name, key, err)
	}

	return url, nil
}

// Close implements objstore.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ objstore.Store  = (*Store)(nil)
	_ objstore.Signer = (*Store)(nil)
)

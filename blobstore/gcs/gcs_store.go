package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/hupe1980/bigramdict/blobstore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Config holds the settings used by New.
type Config struct {
	Bucket string
	Prefix string
	// CredentialsFile is a service account key. Empty uses the default
	// credentials chain.
	CredentialsFile string
}

// Store implements blobstore.BlobStore for a GCS bucket.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	owned  bool
}

// NewStore wraps an existing client. rootPrefix is prepended to all object
// names. Close does not close client.
func NewStore(client *storage.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: rootPrefix,
	}
}

// New creates a client from cfg and returns a store that owns it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create storage client: %w", err)
	}
	s := NewStore(client, cfg.Bucket, cfg.Prefix)
	s.owned = true
	return s, nil
}

// Close closes the client if the store created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens an existing object for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	obj := s.bucket.Object(s.key(name))
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return nil, fmt.Errorf("gcs: stat %s: %w", name, err)
	}
	// Pin the generation so range reads see the object Open saw.
	return &gcsBlob{
		obj:  obj.Generation(attrs.Generation),
		size: attrs.Size,
	}, nil
}

// Put uploads an object, replacing any previous generation.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	w := s.bucket.Object(s.key(name)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close writer for %s: %w", name, err)
	}
	return nil
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(s.key(name)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", name, err)
	}
	return nil
}

// List returns all blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)
	if strings.HasSuffix(prefix, "/") {
		fullPrefix += "/"
	}

	var names []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: fullPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", prefix, err)
		}
		name := strings.TrimPrefix(attrs.Name, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

type gcsBlob struct {
	obj  *storage.ObjectHandle
	size int64
}

func (b *gcsBlob) Size() int64 {
	return b.size
}

func (b *gcsBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	length := min(int64(len(p)), b.size-off)
	r, err := b.obj.NewRangeReader(ctx, off, length)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p[:length])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return n, io.EOF
		}
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *gcsBlob) Close() error {
	return nil
}

package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/bigramdict"
	"github.com/hupe1980/bigramdict/blobstore"
	"github.com/hupe1980/bigramdict/blobstore/badger"
	"github.com/hupe1980/bigramdict/blobstore/gcs"
	"github.com/hupe1980/bigramdict/blobstore/minio"
	"github.com/hupe1980/bigramdict/blobstore/s3"
	"github.com/hupe1980/bigramdict/blobstore/sqlite"
	"github.com/hupe1980/bigramdict/codec"
	"github.com/hupe1980/bigramdict/persistence"
)

// Store is an opened blob store and the function releasing it.
type Store struct {
	blobstore.BlobStore
	close func() error
}

// Close releases the store's resources.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens the blob store described by c.
func OpenStore(ctx context.Context, c StoreConfig, logger *slog.Logger) (*Store, error) {
	switch c.Type {
	case StoreMemory:
		return &Store{BlobStore: blobstore.NewMemoryStore()}, nil
	case StoreLocal:
		return &Store{BlobStore: blobstore.NewLocalStore(c.Path)}, nil
	case StoreS3:
		opts := []s3.Option{s3.WithPrefix(c.Prefix)}
		if c.Region != "" {
			opts = append(opts, s3.WithRegion(c.Region))
		}
		if c.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(c.Endpoint))
		}
		if c.Table != "" {
			st, err := s3.NewCommitStore(ctx, c.Bucket, c.Table, opts...)
			if err != nil {
				return nil, fmt.Errorf("open s3 commit store: %w", err)
			}
			return &Store{BlobStore: st}, nil
		}
		st, err := s3.New(ctx, c.Bucket, opts...)
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		return &Store{BlobStore: st}, nil
	case StoreMinIO:
		st, err := minio.New(minio.Config{
			Endpoint:  c.Endpoint,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Region:    c.Region,
			Secure:    c.Secure,
			Bucket:    c.Bucket,
			Prefix:    c.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open minio store: %w", err)
		}
		return &Store{BlobStore: st}, nil
	case StoreGCS:
		st, err := gcs.New(ctx, gcs.Config{
			Bucket:          c.Bucket,
			Prefix:          c.Prefix,
			CredentialsFile: c.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return &Store{BlobStore: st, close: st.Close}, nil
	case StoreSQLite:
		st, err := sqlite.Open(ctx, c.Path)
		if err != nil {
			return nil, err
		}
		return &Store{BlobStore: st, close: st.Close}, nil
	case StoreBadger:
		st, err := badger.Open(badger.Config{
			Path:       c.Path,
			InMemory:   c.Path == "",
			SyncWrites: true,
			Prefix:     c.Prefix,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return &Store{BlobStore: st, close: st.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", c.Type)
	}
}

// NewLogger builds the dictionary logger writing to w.
func NewLogger(c LogConfig, w io.Writer) (*bigramdict.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return bigramdict.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return bigramdict.NewLogger(slog.NewTextHandler(w, opts)), nil
}

// Options translates the dictionary and WAL sections into dictionary options.
func (c *Config) Options() ([]bigramdict.Option, error) {
	d := c.Dictionary
	var opts []bigramdict.Option

	if d.Decay {
		decay := bigramdict.DefaultDecayConfig()
		if d.MaxEncoded != 0 {
			decay.MaxEncoded = bigramdict.Probability(d.MaxEncoded)
		}
		if d.MinValid != 0 {
			decay.MinValid = bigramdict.Probability(d.MinValid)
		}
		if d.Step != 0 {
			decay.Step = bigramdict.Probability(d.Step)
		}
		opts = append(opts, bigramdict.WithDecay(decay))
	}
	if d.CapacityBytes > 0 {
		opts = append(opts, bigramdict.WithCapacity(d.CapacityBytes))
	}
	if d.IOLimit > 0 {
		opts = append(opts, bigramdict.WithIOLimit(d.IOLimit))
	}
	if d.Codec != "" {
		cd, ok := codec.ByName(d.Codec)
		if !ok {
			return nil, fmt.Errorf("unknown dictionary.codec %q", d.Codec)
		}
		opts = append(opts, bigramdict.WithCodec(cd))
	}
	if d.Compression != "" {
		comp, err := persistence.ParseCompression(d.Compression)
		if err != nil {
			return nil, fmt.Errorf("dictionary.compression: %w", err)
		}
		opts = append(opts, bigramdict.WithCompression(comp))
	}
	if d.RetainSnapshots != 0 {
		opts = append(opts, bigramdict.WithRetainSnapshots(d.RetainSnapshots))
	}
	if c.WAL.Path != "" {
		sync := c.WAL.Sync
		opts = append(opts, bigramdict.WithWAL(c.WAL.Path, func(o *bigramdict.WALOptions) {
			o.Durability = bigramdict.DurabilityAsync
			if sync {
				o.Durability = bigramdict.DurabilitySync
			}
		}))
	}
	return opts, nil
}

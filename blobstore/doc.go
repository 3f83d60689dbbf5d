// Package blobstore provides the storage abstraction for dictionary snapshots
// and manifests.
//
// A BlobStore holds immutable, named blobs. Names use forward slashes
// ("snapshots/00000001.bgs") regardless of the backend. Implementations must
// be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and ephemeral dictionaries
//   - LocalStore: local file system, atomic writes and mmap reads
//   - s3.Store: Amazon S3 with range reads and managed uploads
//   - s3.DDBCommitStore: S3 plus a DynamoDB commit log for the CURRENT pointer
//   - minio.Store: MinIO and other S3-compatible services
//   - gcs.Store: Google Cloud Storage
//   - badger.Store: an embedded BadgerDB key space
//   - sqlite.Store: a table in an embedded SQLite database
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Open must return an error satisfying errors.Is(err, ErrNotFound) for missing
// blobs. Put must be atomic: readers observe either the old or the new blob.
package blobstore

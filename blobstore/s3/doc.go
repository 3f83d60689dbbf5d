// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("dictionaries/en/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	dict, err := bigramdict.Open(ctx, store)
//
// S3 has no compare-and-swap, so two writers saving the same dictionary can
// overwrite each other's CURRENT pointer. DDBCommitStore keeps the pointer in
// a DynamoDB table with conditional writes instead:
//
//	store, err := s3.NewCommitStore(ctx, "my-bucket", "bigramdict-commits",
//	    s3.WithPrefix("dictionaries/en/"),
//	)
//
// # Features
//
//   - Range reads for partial fetches
//   - Managed multipart uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3

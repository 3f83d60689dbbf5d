// Package gcs provides a BlobStore backed by a Google Cloud Storage bucket.
//
// Object writes in GCS are atomic, so the CURRENT pointer can be committed with
// a plain Put. Set STORAGE_EMULATOR_HOST to run against a local emulator.
package gcs

// Package sqlite provides a BlobStore backed by a table in an SQLite database,
// using the pure Go modernc.org/sqlite driver.
package sqlite

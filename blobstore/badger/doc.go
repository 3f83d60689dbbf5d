// Package badger provides a BlobStore backed by BadgerDB.
//
// Blobs are stored as values under their names, optionally below a key
// prefix, so one BadgerDB instance can host several dictionaries. Every Put is
// a single transaction.
package badger

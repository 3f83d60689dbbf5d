// Package content implements the bigram content region: a flat, append-only byte
// region of fixed-layout bigram records plus the table of list heads.
//
// It is the record codec of the dictionary. It exposes no policy, only mechanical
// encode/decode at positions:
//
//   - ReadEntry / ReadEntryAndAdvance
//   - WriteEntry / WriteEntryAndAdvance
//   - CreateNewList (registers the current tail as a terminal's list head)
//   - CopyList (appends a copy of a list after a position)
//
// # Record Layout
//
// Every record is EntryBytes long, big-endian:
//
//	+-------+-------------------+-------------------+
//	| flags | probability int32 | target uint32     |
//	| 1 B   | 4 B               | 4 B               |
//	+-------+-------------------+-------------------+
//
// flags bit 0x80 is hasNext. A target of 0xFFFFFFFF encodes model.NotATerminal
// (a tombstone).
//
// # Growth
//
// Writes are accepted either in place (the record lies inside the region) or
// exactly at the tail, which extends the region. Extensions reserve bytes from a
// resource.Controller; when its capacity is exhausted, writes fail with
// ErrCapacityExceeded. Bytes are never removed: regions orphaned by list growth
// stay until an external compaction rewrites the whole store.
package content

// Package wal implements the write-ahead log of dictionary mutations.
//
// Every mutation of a dictionary (terminal bound or unbound, bigram added or
// removed, sweep) is appended as a fixed-size, CRC32-framed record before it is
// applied in memory. After a crash the dictionary loads its latest snapshot and
// replays the records whose LSN is newer than the snapshot.
//
// # File Format
//
//	header:  "BGRAMWAL" (8 bytes) | version uint32
//	record:  crc32 | type u8 | lsn u64 | terminal i32 | target i32 | value i64
//
// All integers are little-endian. The checksum covers everything after it.
//
// # Durability
//
// DurabilityAsync leaves records in the OS page cache. DurabilitySync makes
// Append wait for fsync; concurrent appenders share fsyncs (group commit) through
// a background syncer goroutine.
//
// # Recovery
//
// Open scans the log and truncates a torn or corrupt tail, so that replay after
// Open never sees a partial record.
package wal

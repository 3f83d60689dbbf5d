// Package persistence implements the snapshot file format of a bigram dictionary.
//
// A snapshot captures everything needed to rebuild a dictionary without its
// write-ahead log: the terminal table, the list head table and the raw bigram
// content region, stamped with the LSN of the last mutation it includes.
//
// # File Layout
//
//	+--------------------+  64-byte FileHeader, little-endian
//	| header             |
//	+--------------------+
//	| payload            |  optionally LZ4 or ZSTD compressed
//	|   terminals        |    TerminalCount x (id u32, node pos i64)
//	|   heads            |    ListCount x (id u32, head u64)
//	|   content          |    ContentBytes raw bigram records
//	+--------------------+
//
// The header checksum is the CRC32 of the uncompressed payload. Decode verifies
// it and reports a *ChecksumMismatchError on corruption.
package persistence

// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: open, remove, rename, stat, mkdir, readdir, truncate
//   - [LocalFS]: the os-backed implementation, exposed as [Default]
//   - [FaultyFS]: a wrapper that injects write, sync and close failures
//
// The write-ahead log and the local blob store take a FileSystem so tests can
// simulate a full disk or a failing fsync:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".wal", fs.Fault{FailAfterBytes: 64})
//
// [WriteFileAtomic] writes a file through a temporary sibling and a rename, so
// readers never observe a partially written snapshot.
//
// Operations take no context.Context; local filesystem calls are not
// interruptible at the syscall level. Remote storage lives behind blobstore.
package fs

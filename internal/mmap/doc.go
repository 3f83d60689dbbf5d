// Package mmap maps blobs of the local store into memory.
//
// Restoring a dictionary decodes the snapshot straight from the page cache
// instead of copying the file into the heap first:
//
//	f, err := mmap.Map("snapshots/00000042.bgs")
//	if err != nil { ... }
//	defer f.Close()
//
//	data, err := f.Bytes()
//
// On Unix the file is mapped with mmap(2) and the kernel is told to read
// ahead. Other platforms read the file into memory.
package mmap

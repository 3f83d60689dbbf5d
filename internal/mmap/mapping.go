package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("mmap: file is closed")
	// ErrTooLarge is returned for files that do not fit the address space.
	ErrTooLarge = errors.New("mmap: file too large to map")
	// ErrNegativeOffset is returned by ReadAt for offsets below zero.
	ErrNegativeOffset = errors.New("mmap: negative offset")
)

// File is a read-only, memory-resident view of a snapshot or manifest blob.
type File struct {
	data    []byte
	release func([]byte) error
	closed  atomic.Bool
}

// Map makes the file at path readable through a File. Blobs are decoded
// front to back, so the kernel is asked to read ahead.
func Map(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n := fi.Size()
	if int64(int(n)) != n {
		return nil, ErrTooLarge
	}
	if n == 0 {
		return &File{}, nil
	}

	data, release, err := mapReadOnly(f, int(n))
	if err != nil {
		return nil, err
	}
	readAhead(data)
	return &File{data: data, release: release}, nil
}

// Len returns the size of the file in bytes.
func (m *File) Len() int64 {
	return int64(len(m.data))
}

// Bytes returns the contents, or ErrClosed. The slice is only valid until
// Close.
func (m *File) Bytes() ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.data, nil
}

// ReadAt copies from the file at off. Short reads at the end return io.EOF.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.closed.Load():
		return 0, ErrClosed
	case off < 0:
		return 0, ErrNegativeOffset
	case off >= m.Len():
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file. Later calls return nil.
func (m *File) Close() error {
	if m.closed.Swap(true) || m.release == nil {
		return nil
	}
	return m.release(m.data)
}

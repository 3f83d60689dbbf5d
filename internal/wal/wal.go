package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/bigramdict/internal/fs"
)

// Durability controls the durability guarantees of the WAL.
type Durability int

const (
	// DurabilityAsync relies on OS page cache. Fast but risky.
	DurabilityAsync Durability = iota
	// DurabilitySync waits for fsync before Append returns.
	DurabilitySync
)

const (
	walMagic      = "BGRAMWAL"
	walVersion    = 1
	walHeaderSize = 12
)

var (
	ErrIncompatibleVersion = errors.New("incompatible WAL version")
	ErrInvalidHeader       = errors.New("invalid WAL header")
)

// Options configures a WAL.
type Options struct {
	Durability Durability
}

// DefaultOptions returns synchronous durability.
func DefaultOptions() Options {
	return Options{Durability: DurabilitySync}
}

// WAL manages the write-ahead log file.
type WAL struct {
	mu      sync.Mutex
	fs      fs.FileSystem
	file    fs.File
	cw      *countingWriter
	path    string
	opts    Options
	lastLSN uint64
	records int

	// Group commit state
	syncedOffset int64      // offset known to be fsync'd
	syncCond     *sync.Cond // wakes the syncer
	doneCond     *sync.Cond // wakes waiters after a sync
	closed       bool
	lastErr      error // terminal error of the background syncer
	wg           sync.WaitGroup
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Open opens or creates a WAL at path. A torn or corrupt tail is truncated.
func Open(fsys fs.FileSystem, path string, opts Options) (*WAL, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	offset, lastLSN, records, err := recoverFile(fsys, f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &WAL{
		fs:           fsys,
		file:         f,
		cw:           &countingWriter{w: bufio.NewWriter(f), n: offset},
		path:         path,
		opts:         opts,
		lastLSN:      lastLSN,
		records:      records,
		syncedOffset: offset,
	}
	w.syncCond = sync.NewCond(&w.mu)
	w.doneCond = sync.NewCond(&w.mu)

	if opts.Durability == DurabilitySync {
		w.wg.Add(1)
		go w.runSyncer()
	}
	return w, nil
}

// recoverFile validates or writes the header and scans the records. It returns
// the end offset of the last valid record.
func recoverFile(fsys fs.FileSystem, f fs.File, path string) (int64, uint64, int, error) {
	stat, err := f.Stat()
	if err != nil {
		return 0, 0, 0, err
	}
	size := stat.Size()

	if size == 0 {
		header := make([]byte, walHeaderSize)
		copy(header, walMagic)
		binary.LittleEndian.PutUint32(header[8:], walVersion)
		if _, err := f.Write(header); err != nil {
			return 0, 0, 0, err
		}
		if err := f.Sync(); err != nil {
			return 0, 0, 0, err
		}
		return walHeaderSize, 0, 0, nil
	}

	if size < walHeaderSize {
		return 0, 0, 0, fmt.Errorf("%w: file too small (%d < %d)", ErrInvalidHeader, size, walHeaderSize)
	}
	header := make([]byte, walHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return 0, 0, 0, err
	}
	if string(header[:8]) != walMagic {
		return 0, 0, 0, fmt.Errorf("%w: invalid magic %q", ErrInvalidHeader, header[:8])
	}
	if ver := binary.LittleEndian.Uint32(header[8:]); ver != walVersion {
		return 0, 0, 0, fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, ver, walVersion)
	}

	r := bufio.NewReader(io.NewSectionReader(f, walHeaderSize, size-walHeaderSize))
	offset := int64(walHeaderSize)
	var lastLSN uint64
	records := 0
	for {
		rec, err := Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Torn or corrupt tail: keep the valid prefix.
			if err := fsys.Truncate(path, offset); err != nil {
				return 0, 0, 0, err
			}
			break
		}
		offset += RecordSize
		lastLSN = max(lastLSN, rec.LSN)
		records++
	}
	return offset, lastLSN, records, nil
}

// Size returns the current size of the WAL in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cw.n
}

// Len returns the number of records in the log.
func (w *WAL) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// LastLSN returns the LSN of the last appended record.
func (w *WAL) LastLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastLSN
}

// AdvanceLSN makes the next assigned LSN larger than lsn. It is used after
// loading a snapshot taken at lsn into an empty log.
func (w *WAL) AdvanceLSN(lsn uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastLSN = max(w.lastLSN, lsn)
}

func (w *WAL) runSyncer() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		for w.cw.n <= w.syncedOffset && !w.closed {
			w.syncCond.Wait()
		}
		if w.closed && w.cw.n <= w.syncedOffset {
			return
		}

		target := w.cw.n

		w.mu.Unlock()
		err := w.file.Sync()
		w.mu.Lock()

		if err != nil {
			w.lastErr = fmt.Errorf("wal sync failed: %w", err)
			w.doneCond.Broadcast()
			return
		}
		if target > w.syncedOffset {
			w.syncedOffset = target
		}
		w.doneCond.Broadcast()
	}
}

// Append assigns the next LSN to rec, writes it and, in sync mode, waits for
// it to be durable. It returns the assigned LSN.
func (w *WAL) Append(rec *Record) (uint64, error) {
	offset, err := w.AppendAsync(rec)
	if err != nil {
		return 0, err
	}
	if w.opts.Durability == DurabilitySync {
		if err := w.WaitFor(offset); err != nil {
			return 0, err
		}
	}
	return rec.LSN, nil
}

// AppendAsync assigns the next LSN to rec and writes it without waiting for
// sync. It returns the file offset of the end of the record.
func (w *WAL) AppendAsync(rec *Record) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}
	if w.lastErr != nil {
		return 0, w.lastErr
	}

	rec.LSN = w.lastLSN + 1
	if err := rec.Encode(w.cw); err != nil {
		w.lastErr = fmt.Errorf("wal write failed: %w", err)
		return 0, w.lastErr
	}
	// A failed flush leaves the buffered writer unusable.
	if err := w.cw.w.Flush(); err != nil {
		w.lastErr = fmt.Errorf("wal write failed: %w", err)
		return 0, w.lastErr
	}
	w.lastLSN = rec.LSN
	w.records++

	if w.opts.Durability == DurabilitySync {
		w.syncCond.Signal()
	}
	return w.cw.n, nil
}

// WaitFor waits until the WAL is synced up to offset.
func (w *WAL) WaitFor(offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waitLocked(offset)
}

func (w *WAL) waitLocked(offset int64) error {
	for w.syncedOffset < offset && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if w.closed && w.syncedOffset < offset {
		return os.ErrClosed
	}
	return nil
}

// Sync ensures all buffered writes are committed to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *WAL) syncLocked() error {
	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if err := w.cw.w.Flush(); err != nil {
		return err
	}

	if w.opts.Durability == DurabilityAsync {
		if err := w.file.Sync(); err != nil {
			return err
		}
		w.syncedOffset = w.cw.n
		return nil
	}

	w.syncCond.Signal()
	return w.waitLocked(w.cw.n)
}

// Reset discards all records after they are covered by a snapshot. LSNs keep
// increasing across a reset.
func (w *WAL) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.syncLocked(); err != nil {
		return err
	}
	if err := w.fs.Truncate(w.path, walHeaderSize); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.cw.n = walHeaderSize
	w.syncedOffset = walHeaderSize
	w.records = 0
	return nil
}

// Close flushes and closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return os.ErrClosed
	}

	if err := w.cw.w.Flush(); err != nil {
		w.closed = true
		w.syncCond.Signal()
		w.mu.Unlock()
		w.wg.Wait()
		return errors.Join(err, w.file.Close())
	}

	w.closed = true
	w.syncCond.Signal()
	w.mu.Unlock()

	w.wg.Wait()

	if w.opts.Durability == DurabilityAsync {
		if err := w.file.Sync(); err != nil {
			return errors.Join(err, w.file.Close())
		}
	}
	return w.file.Close()
}

// Replay calls fn for every record with an LSN greater than after, in log
// order.
func (w *WAL) Replay(after uint64, fn func(*Record) error) error {
	if err := w.Sync(); err != nil {
		return err
	}
	r, err := w.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.LSN <= after {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Reader returns a reader for replaying the WAL.
// The caller is responsible for closing it.
func (w *WAL) Reader() (*Reader, error) {
	f, err := w.fs.OpenFile(w.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(walHeaderSize, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Reader{f: f, r: bufio.NewReader(f), offset: walHeaderSize}, nil
}

// Reader iterates over WAL records.
type Reader struct {
	f      fs.File
	r      *bufio.Reader
	offset int64
}

// Next reads the next record. Returns io.EOF when done.
func (r *Reader) Next() (*Record, error) {
	rec, err := Decode(r.r)
	if err == nil {
		r.offset += RecordSize
	}
	return rec, err
}

// Offset returns the end offset of the last record read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.f.Close()
}

package wal

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/bigramdict/internal/fs"
	"github.com/hupe1980/bigramdict/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, w *WAL) []*Record {
	t.Helper()
	var out []*Record
	require.NoError(t, w.Replay(0, func(r *Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestRecord_EncodeDecode(t *testing.T) {
	rec := &Record{LSN: 7, Type: RecordTypeAddBigram, Terminal: 5, Target: 9, Value: -80}
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf))
	assert.Equal(t, RecordSize, buf.Len())

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = Decode(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecord_DecodeErrors(t *testing.T) {
	rec := &Record{LSN: 1, Type: RecordTypeRemoveTerminal, Terminal: 3, Target: model.NotATerminal}
	var buf bytes.Buffer
	require.NoError(t, rec.Encode(&buf))
	data := buf.Bytes()

	t.Run("short", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(data[:RecordSize-1]))
		assert.ErrorIs(t, err, ErrShortRead)
	})

	t.Run("crc", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[terminalOff]++
		_, err := Decode(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidCRC)
	})

	t.Run("type", func(t *testing.T) {
		var b bytes.Buffer
		require.NoError(t, (&Record{Type: 99}).Encode(&b))
		_, err := Decode(&b)
		assert.ErrorIs(t, err, ErrInvalidType)
	})
}

func TestRecordType_String(t *testing.T) {
	assert.Equal(t, "add-bigram", RecordTypeAddBigram.String())
	assert.Equal(t, "sweep", RecordTypeSweep.String())
	assert.Equal(t, "record-type(42)", RecordType(42).String())
}

func TestWAL_AppendReplay(t *testing.T) {
	for _, d := range []Durability{DurabilityAsync, DurabilitySync} {
		path := filepath.Join(t.TempDir(), "bigrams.wal")
		w, err := Open(nil, path, Options{Durability: d})
		require.NoError(t, err)

		lsn, err := w.Append(&Record{Type: RecordTypeAddTerminal, Terminal: 5, Value: 500})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), lsn)
		lsn, err = w.Append(&Record{Type: RecordTypeAddBigram, Terminal: 5, Target: 9, Value: 80})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), lsn)
		assert.Equal(t, int64(walHeaderSize+2*RecordSize), w.Size())
		require.NoError(t, w.Close())
		assert.ErrorIs(t, w.Close(), os.ErrClosed)

		w, err = Open(nil, path, Options{Durability: d})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), w.LastLSN())
		assert.Equal(t, 2, w.Len())

		recs := readAll(t, w)
		require.Len(t, recs, 2)
		assert.Equal(t, RecordTypeAddTerminal, recs[0].Type)
		assert.Equal(t, &Record{LSN: 2, Type: RecordTypeAddBigram, Terminal: 5, Target: 9, Value: 80}, recs[1])

		var after []uint64
		require.NoError(t, w.Replay(1, func(r *Record) error {
			after = append(after, r.LSN)
			return nil
		}))
		assert.Equal(t, []uint64{2}, after)

		lsn, err = w.Append(&Record{Type: RecordTypeSweep})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), lsn)
		require.NoError(t, w.Close())
	}
}

func TestWAL_ReplayCallbackError(t *testing.T) {
	w, err := Open(nil, filepath.Join(t.TempDir(), "x.wal"), DefaultOptions())
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Append(&Record{Type: RecordTypeSweep})
	require.NoError(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, w.Replay(0, func(*Record) error { return boom }), boom)
}

func TestWAL_TornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	for i := range 3 {
		_, err := w.Append(&Record{Type: RecordTypeAddBigram, Terminal: 1, Target: model.TerminalID(i), Value: 1})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	require.NoError(t, os.Truncate(path, walHeaderSize+3*RecordSize-5))

	w, err = Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, uint64(2), w.LastLSN())
	assert.Equal(t, int64(walHeaderSize+2*RecordSize), w.Size())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(walHeaderSize+2*RecordSize), info.Size())

	lsn, err := w.Append(&Record{Type: RecordTypeSweep})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), lsn)
	assert.Len(t, readAll(t, w), 3)
}

func TestWAL_InvalidHeader(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.wal")
	require.NoError(t, os.WriteFile(short, []byte("BGR"), 0o644))
	_, err := Open(nil, short, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidHeader)

	magic := filepath.Join(dir, "magic.wal")
	require.NoError(t, os.WriteFile(magic, []byte("NOTAWAL!\x01\x00\x00\x00"), 0o644))
	_, err = Open(nil, magic, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidHeader)

	version := filepath.Join(dir, "version.wal")
	require.NoError(t, os.WriteFile(version, []byte("BGRAMWAL\x02\x00\x00\x00"), 0o644))
	_, err = Open(nil, version, DefaultOptions())
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestWAL_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reset.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)

	for range 4 {
		_, err := w.Append(&Record{Type: RecordTypeSweep})
		require.NoError(t, err)
	}
	require.NoError(t, w.Reset())
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, int64(walHeaderSize), w.Size())
	assert.Empty(t, readAll(t, w))

	lsn, err := w.Append(&Record{Type: RecordTypeSweep})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), lsn)
	require.NoError(t, w.Close())

	// After reopening an emptied log, the snapshot LSN seeds the counter.
	require.NoError(t, os.Truncate(path, walHeaderSize))
	w, err = Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, uint64(0), w.LastLSN())
	w.AdvanceLSN(5)
	w.AdvanceLSN(2)
	lsn, err = w.Append(&Record{Type: RecordTypeSweep})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), lsn)
}

func TestWAL_GroupCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "group.wal")
	w, err := Open(nil, path, Options{Durability: DurabilitySync})
	require.NoError(t, err)

	const writers, perWriter = 16, 50
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for i := range writers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range perWriter {
				_, err := w.Append(&Record{
					Type:     RecordTypeAddBigram,
					Terminal: model.TerminalID(id),
					Target:   model.TerminalID(j),
					Value:    int64(j),
				})
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	w, err = Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()

	recs := readAll(t, w)
	require.Len(t, recs, writers*perWriter)
	for i, r := range recs {
		assert.Equal(t, uint64(i+1), r.LSN)
	}
}

func TestWAL_Faults(t *testing.T) {
	t.Run("write failure is sticky", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule(".wal", fs.Fault{FailAfterBytes: walHeaderSize + RecordSize})

		w, err := Open(ffs, filepath.Join(t.TempDir(), "f.wal"), Options{Durability: DurabilityAsync})
		require.NoError(t, err)

		_, err = w.Append(&Record{Type: RecordTypeSweep})
		require.NoError(t, err)
		_, err = w.Append(&Record{Type: RecordTypeSweep})
		assert.ErrorIs(t, err, fs.ErrInjected)
		_, err = w.Append(&Record{Type: RecordTypeSweep})
		assert.ErrorIs(t, err, fs.ErrInjected)
		assert.Equal(t, uint64(1), w.LastLSN())
		_ = w.Close()
	})

	t.Run("sync failure", func(t *testing.T) {
		ffs := fs.NewFaultyFS(nil)
		path := filepath.Join(t.TempDir(), "s.wal")
		w, err := Open(ffs, path, DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, w.Close())

		ffs.AddRule(".wal", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
		w, err = Open(ffs, path, DefaultOptions())
		require.NoError(t, err)
		_, err = w.Append(&Record{Type: RecordTypeSweep})
		assert.ErrorIs(t, err, fs.ErrInjected)
		assert.ErrorIs(t, w.Sync(), fs.ErrInjected)
		_ = w.Close()
	})
}

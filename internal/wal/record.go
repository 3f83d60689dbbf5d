package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/bigramdict/model"
)

// RecordType identifies the mutation a record describes.
type RecordType uint8

const (
	// RecordTypeAddTerminal binds Terminal to the node position in Value.
	RecordTypeAddTerminal RecordType = 1
	// RecordTypeRemoveTerminal unbinds Terminal.
	RecordTypeRemoveTerminal RecordType = 2
	// RecordTypeAddBigram adds Terminal -> Target with the probability in Value.
	RecordTypeAddBigram RecordType = 3
	// RecordTypeRemoveBigram removes Terminal -> Target.
	RecordTypeRemoveBigram RecordType = 4
	// RecordTypeSweep runs a maintenance sweep over all lists.
	RecordTypeSweep RecordType = 5
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeAddTerminal:
		return "add-terminal"
	case RecordTypeRemoveTerminal:
		return "remove-terminal"
	case RecordTypeAddBigram:
		return "add-bigram"
	case RecordTypeRemoveBigram:
		return "remove-bigram"
	case RecordTypeSweep:
		return "sweep"
	default:
		return fmt.Sprintf("record-type(%d)", uint8(t))
	}
}

func (t RecordType) valid() bool {
	return t >= RecordTypeAddTerminal && t <= RecordTypeSweep
}

const (
	crcOff      = 0
	typeOff     = crcOff + 4
	lsnOff      = typeOff + 1
	terminalOff = lsnOff + 8
	targetOff   = terminalOff + 4
	valueOff    = targetOff + 4

	// RecordSize is the encoded size of every record.
	RecordSize = valueOff + 8
)

var (
	ErrInvalidCRC  = errors.New("invalid WAL record checksum")
	ErrInvalidType = errors.New("invalid WAL record type")
	ErrShortRead   = errors.New("short read in WAL record")
)

// Record is a single logged mutation.
type Record struct {
	LSN      uint64
	Type     RecordType
	Terminal model.TerminalID
	Target   model.TerminalID
	Value    int64
}

// Encode writes the record to w.
func (r *Record) Encode(w io.Writer) error {
	var buf [RecordSize]byte
	buf[typeOff] = byte(r.Type)
	binary.LittleEndian.PutUint64(buf[lsnOff:], r.LSN)
	binary.LittleEndian.PutUint32(buf[terminalOff:], uint32(r.Terminal))
	binary.LittleEndian.PutUint32(buf[targetOff:], uint32(r.Target))
	binary.LittleEndian.PutUint64(buf[valueOff:], uint64(r.Value))
	binary.LittleEndian.PutUint32(buf[crcOff:], crc32.ChecksumIEEE(buf[typeOff:]))

	_, err := w.Write(buf[:])
	return err
}

// Decode reads a record from r. It returns io.EOF at a clean end of input and
// ErrShortRead for a truncated record.
func Decode(r io.Reader) (*Record, error) {
	var buf [RecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortRead
		}
		return nil, err
	}

	if crc32.ChecksumIEEE(buf[typeOff:]) != binary.LittleEndian.Uint32(buf[crcOff:]) {
		return nil, ErrInvalidCRC
	}

	rec := &Record{
		Type:     RecordType(buf[typeOff]),
		LSN:      binary.LittleEndian.Uint64(buf[lsnOff:]),
		Terminal: model.TerminalID(int32(binary.LittleEndian.Uint32(buf[terminalOff:]))),
		Target:   model.TerminalID(int32(binary.LittleEndian.Uint32(buf[targetOff:]))),
		Value:    int64(binary.LittleEndian.Uint64(buf[valueOff:])),
	}
	if !rec.Type.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, buf[typeOff])
	}
	return rec, nil
}

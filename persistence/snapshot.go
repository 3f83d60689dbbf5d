package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/bigramdict/internal/conv"
	"github.com/hupe1980/bigramdict/model"
)

// Binding is a terminal table row.
type Binding struct {
	Terminal model.TerminalID
	NodePos  model.Pos
}

// ListHead is a head table row.
type ListHead struct {
	Terminal model.TerminalID
	Head     model.Pos
}

// Snapshot is the decoded state of a dictionary.
type Snapshot struct {
	LSN       uint64
	Decay     bool
	Terminals []Binding
	Heads     []ListHead
	Content   []byte
}

// Encode writes s to w and returns the number of bytes written.
func Encode(w io.Writer, s *Snapshot, c Compression) (int64, error) {
	rawSize := len(s.Terminals)*terminalRecordSize + len(s.Heads)*headRecordSize + len(s.Content)
	var raw bytes.Buffer
	raw.Grow(rawSize)
	cw := NewChecksumWriter(&raw)

	var rec [12]byte
	for _, b := range s.Terminals {
		if !b.Terminal.Valid() || !b.NodePos.Valid() {
			return 0, fmt.Errorf("persistence: invalid binding %v -> %d", b.Terminal, b.NodePos)
		}
		binary.LittleEndian.PutUint32(rec[0:], uint32(b.Terminal))
		binary.LittleEndian.PutUint64(rec[4:], uint64(b.NodePos))
		_, _ = cw.Write(rec[:terminalRecordSize])
	}
	for _, h := range s.Heads {
		if !h.Terminal.Valid() || !h.Head.Valid() {
			return 0, fmt.Errorf("persistence: invalid list head %v -> %d", h.Terminal, h.Head)
		}
		binary.LittleEndian.PutUint32(rec[0:], uint32(h.Terminal))
		binary.LittleEndian.PutUint64(rec[4:], uint64(h.Head))
		_, _ = cw.Write(rec[:headRecordSize])
	}
	_, _ = cw.Write(s.Content)

	payload, applied, err := compress(raw.Bytes(), c)
	if err != nil {
		return 0, err
	}

	hdr := FileHeader{
		Magic:         MagicNumber,
		Version:       Version,
		Compression:   uint8(applied),
		TerminalCount: uint32(len(s.Terminals)),
		ListCount:     uint32(len(s.Heads)),
		Checksum:      cw.Sum(),
		ContentBytes:  uint64(len(s.Content)),
		PayloadBytes:  uint64(len(payload)),
		RawBytes:      uint64(rawSize),
		LSN:           s.LSN,
	}
	if s.Decay {
		hdr.Flags |= FlagDecay
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return 0, err
	}
	n, err := w.Write(payload)
	return int64(HeaderSize + n), err
}

// DecodeHeader parses and validates the header at the start of data.
func DecodeHeader(data []byte) (*FileHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrCorrupted, len(data), HeaderSize)
	}
	var hdr FileHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if err := hdr.validate(); err != nil {
		return nil, err
	}
	return &hdr, nil
}

// Decode parses a snapshot. The returned content is a copy when the payload was
// compressed and aliases data otherwise.
func Decode(data []byte) (*Snapshot, error) {
	hdr, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-HeaderSize) < hdr.PayloadBytes {
		return nil, fmt.Errorf("%w: payload truncated (%d < %d)", ErrCorrupted, len(data)-HeaderSize, hdr.PayloadBytes)
	}
	rawSize, err := conv.Uint64ToInt(hdr.RawBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: payload size %d: %w", ErrCorrupted, hdr.RawBytes, err)
	}

	stored := data[HeaderSize : HeaderSize+int(hdr.PayloadBytes)]
	raw, err := decompress(stored, Compression(hdr.Compression), rawSize)
	if err != nil {
		return nil, err
	}
	if err := VerifyChecksum(raw, hdr.Checksum); err != nil {
		return nil, err
	}

	s := &Snapshot{
		LSN:       hdr.LSN,
		Decay:     hdr.Flags&FlagDecay != 0,
		Terminals: make([]Binding, hdr.TerminalCount),
		Heads:     make([]ListHead, hdr.ListCount),
	}
	off := 0
	for i := range s.Terminals {
		id, err1 := conv.Uint32ToInt32(binary.LittleEndian.Uint32(raw[off:]))
		pos, err2 := conv.Uint64ToInt(binary.LittleEndian.Uint64(raw[off+4:]))
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: terminal row %d", ErrCorrupted, i)
		}
		s.Terminals[i] = Binding{Terminal: model.TerminalID(id), NodePos: model.Pos(pos)}
		off += terminalRecordSize
	}
	for i := range s.Heads {
		id, err := conv.Uint32ToInt32(binary.LittleEndian.Uint32(raw[off:]))
		head := binary.LittleEndian.Uint64(raw[off+4:])
		if err != nil || head >= hdr.ContentBytes {
			return nil, fmt.Errorf("%w: head row %d", ErrCorrupted, i)
		}
		s.Heads[i] = ListHead{Terminal: model.TerminalID(id), Head: model.Pos(head)}
		off += headRecordSize
	}
	s.Content = raw[off:]
	return s, nil
}

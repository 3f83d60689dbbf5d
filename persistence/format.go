package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies snapshot files (ASCII: "BGR1").
	MagicNumber = 0x42475231
	// Version is the current file format version.
	Version = 0x00010000

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64

	// FlagDecay marks a snapshot of a dictionary running in decay mode.
	FlagDecay uint8 = 1 << 0

	terminalRecordSize = 4 + 8
	headRecordSize     = 4 + 8
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorrupted      = errors.New("corrupted snapshot")
)

// FileHeader is the 64-byte header at the start of every snapshot file.
type FileHeader struct {
	Magic         uint32 // 0x42475231 ("BGR1")
	Version       uint32 // File format version
	Flags         uint8  // FlagDecay
	Compression   uint8  // Compression of the payload
	Padding1      [2]byte
	TerminalCount uint32 // Terminal table rows
	ListCount     uint32 // Head table rows
	Checksum      uint32 // CRC32 of the uncompressed payload
	ContentBytes  uint64 // Size of the content region
	PayloadBytes  uint64 // Stored (possibly compressed) payload size
	RawBytes      uint64 // Uncompressed payload size
	LSN           uint64 // Last WAL record included
	Reserved      [8]byte
}

func (h *FileHeader) validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: 0x%08x", ErrInvalidVersion, h.Version)
	}
	want := uint64(h.TerminalCount)*terminalRecordSize + uint64(h.ListCount)*headRecordSize + h.ContentBytes
	if h.RawBytes != want {
		return fmt.Errorf("%w: payload size %d, expected %d", ErrCorrupted, h.RawBytes, want)
	}
	return nil
}

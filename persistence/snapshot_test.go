package persistence

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/bigramdict/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *Snapshot {
	// A repetitive content region so that compression pays off.
	content := bytes.Repeat([]byte{0x80, 0, 0, 0, 80, 0, 0, 0, 9}, 200)
	content[len(content)-9] = 0
	return &Snapshot{
		LSN:   42,
		Decay: true,
		Terminals: []Binding{
			{Terminal: 5, NodePos: 500},
			{Terminal: 9, NodePos: 900},
		},
		Heads: []ListHead{
			{Terminal: 5, Head: 0},
		},
		Content: content,
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			want := testSnapshot()
			var buf bytes.Buffer
			n, err := Encode(&buf, want, c)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)

			hdr, err := DecodeHeader(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, Compression(hdr.Compression), c)
			if c != CompressionNone {
				assert.Less(t, hdr.PayloadBytes, hdr.RawBytes)
			}

			got, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSnapshot_Empty(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, &Snapshot{}, CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize, buf.Len())

	got, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.LSN)
	assert.False(t, got.Decay)
	assert.Empty(t, got.Terminals)
	assert.Empty(t, got.Heads)
	assert.Empty(t, got.Content)
}

func TestSnapshot_IncompressibleStoredRaw(t *testing.T) {
	s := &Snapshot{Content: []byte{0x80, 1, 2, 3, 4, 5, 6, 7, 8}}
	var buf bytes.Buffer
	_, err := Encode(&buf, s, CompressionLZ4)
	require.NoError(t, err)

	hdr, err := DecodeHeader(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint8(CompressionNone), hdr.Compression)
}

func TestSnapshot_InvalidRows(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, &Snapshot{Terminals: []Binding{{Terminal: model.NotATerminal, NodePos: 1}}}, CompressionNone)
	assert.Error(t, err)
	_, err = Encode(&buf, &Snapshot{Heads: []ListHead{{Terminal: 1, Head: model.NotAPos}}}, CompressionNone)
	assert.Error(t, err)
}

func TestSnapshot_Corruption(t *testing.T) {
	encode := func(t *testing.T, c Compression) []byte {
		t.Helper()
		var buf bytes.Buffer
		_, err := Encode(&buf, testSnapshot(), c)
		require.NoError(t, err)
		return buf.Bytes()
	}

	t.Run("magic", func(t *testing.T) {
		data := encode(t, CompressionNone)
		data[0] ^= 0xFF
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		data := encode(t, CompressionNone)
		binary.LittleEndian.PutUint32(data[4:], 7)
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := Decode(make([]byte, HeaderSize-1))
		assert.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := encode(t, CompressionZSTD)
		_, err := Decode(data[:len(data)-1])
		assert.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("checksum", func(t *testing.T) {
		data := encode(t, CompressionNone)
		data[len(data)-1] ^= 0x01
		_, err := Decode(data)
		var mismatch *ChecksumMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
		assert.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("compressed payload", func(t *testing.T) {
		data := encode(t, CompressionLZ4)
		for i := HeaderSize; i < len(data); i++ {
			data[i] = 0xFF
		}
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("unknown compression", func(t *testing.T) {
		data := encode(t, CompressionNone)
		data[9] = 7
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrUnknownCompression)
	})
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestChecksumWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	_, err := cw.Write([]byte("bigram"))
	require.NoError(t, err)
	assert.Equal(t, CalculateChecksum([]byte("bigram")), cw.Sum())
	assert.NoError(t, VerifyChecksum(buf.Bytes(), cw.Sum()))
}

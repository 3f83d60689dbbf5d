package content

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bigramdict/internal/conv"
	"github.com/hupe1980/bigramdict/internal/resource"
	"github.com/hupe1980/bigramdict/model"
)

const (
	flagsBytes       = 1
	probabilityBytes = 4
	targetBytes      = 4

	flagsOff       = 0
	probabilityOff = flagsOff + flagsBytes
	targetOff      = probabilityOff + probabilityBytes

	// EntryBytes is the size of one bigram record.
	EntryBytes = targetOff + targetBytes

	hasNextFlag byte = 0x80

	tombstoneTarget uint32 = math.MaxUint32
)

var (
	// ErrInvalidPosition is returned for writes outside the region or not at its tail.
	ErrInvalidPosition = errors.New("content: invalid position")
	// ErrCapacityExceeded is returned when the region cannot be extended.
	ErrCapacityExceeded = errors.New("content: capacity exceeded")
	// ErrInvalidTerminal is returned for negative terminal ids.
	ErrInvalidTerminal = errors.New("content: invalid terminal id")
	// ErrCorrupted is returned when a region or head table fails validation.
	ErrCorrupted = errors.New("content: corrupted region")
)

// Option configures a Content.
type Option func(*Content)

// WithController sets the resource controller that bounds the region size.
func WithController(rc *resource.Controller) Option {
	return func(c *Content) {
		c.rc = rc
	}
}

// WithInitialCapacity preallocates room for n records.
func WithInitialCapacity(n int) Option {
	return func(c *Content) {
		if n > 0 {
			c.buf = make([]byte, 0, n*EntryBytes)
		}
	}
}

// Content is the bigram content region and its head table.
//
// Content is not safe for concurrent use; the owning dictionary serialises access.
type Content struct {
	buf   []byte
	heads map[model.TerminalID]model.Pos // sparse, ids range up to MaxInt32
	lists *roaring.Bitmap
	rc    *resource.Controller
}

// New creates an empty content region.
func New(opts ...Option) *Content {
	c := &Content{
		heads: make(map[model.TerminalID]model.Pos),
		lists: roaring.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HeadPos returns the head position of the terminal's bigram list, or model.NotAPos.
func (c *Content) HeadPos(id model.TerminalID) model.Pos {
	if pos, ok := c.heads[id]; ok {
		return pos
	}
	return model.NotAPos
}

// CreateNewList registers the current tail of the region as the head of the
// terminal's list. Any previous list of the terminal becomes unreachable.
// The caller must write the first record at HeadPos(id) immediately.
func (c *Content) CreateNewList(id model.TerminalID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTerminal, id)
	}
	c.setHead(id, model.Pos(len(c.buf)))
	return nil
}

func (c *Content) setHead(id model.TerminalID, pos model.Pos) {
	c.heads[id] = pos
	c.lists.Add(uint32(id))
}

// ReadEntry decodes the record at pos.
func (c *Content) ReadEntry(at model.Pos) model.Entry {
	return c.ReadEntryAndAdvance(&at)
}

// ReadEntryAndAdvance decodes the record at *pos and moves *pos past it.
//
// A position outside the region yields an end-of-list tombstone, so traversals of
// a damaged chain always terminate.
func (c *Content) ReadEntryAndAdvance(pos *model.Pos) model.Entry {
	p := int(*pos)
	*pos += EntryBytes
	if p < 0 || p+EntryBytes > len(c.buf) {
		return model.Entry{
			Probability: model.NotAProbability,
			HasNext:     false,
			Target:      model.NotATerminal,
		}
	}
	return decodeEntry(c.buf[p : p+EntryBytes])
}

// WriteEntry encodes e at pos.
func (c *Content) WriteEntry(e model.Entry, at model.Pos) error {
	return c.WriteEntryAndAdvance(e, &at)
}

// WriteEntryAndAdvance encodes e at *pos and moves *pos past it. Writing exactly
// at the tail extends the region.
func (c *Content) WriteEntryAndAdvance(e model.Entry, pos *model.Pos) error {
	p := int(*pos)
	switch {
	case p == len(c.buf):
		if err := c.extend(EntryBytes); err != nil {
			return err
		}
	case p < 0 || p+EntryBytes > len(c.buf):
		return fmt.Errorf("%w: write at %d, region size %d", ErrInvalidPosition, p, len(c.buf))
	}
	encodeEntry(c.buf[p:p+EntryBytes], e)
	*pos += EntryBytes
	return nil
}

// CopyList appends a copy of the list starting at src, record by record, at dst.
// The source list must lie entirely before dst.
func (c *Content) CopyList(src, dst model.Pos) error {
	if int(src) < 0 || int(src)+EntryBytes > len(c.buf) {
		return fmt.Errorf("%w: copy from %d, region size %d", ErrInvalidPosition, src, len(c.buf))
	}
	limit := int(dst)
	readPos, writePos := src, dst
	for {
		if int(readPos)+EntryBytes > limit {
			return fmt.Errorf("%w: list at %d does not terminate before %d", ErrCorrupted, src, dst)
		}
		e := c.ReadEntryAndAdvance(&readPos)
		if err := c.WriteEntryAndAdvance(e, &writePos); err != nil {
			return err
		}
		if !e.HasNext {
			return nil
		}
	}
}

// CheckGrowth reports whether n more records fit the region, returning
// ErrCapacityExceeded if they do not. Nothing is reserved.
func (c *Content) CheckGrowth(n int) error {
	if n <= 0 || c.rc.Fits(int64(n)*EntryBytes) {
		return nil
	}
	return fmt.Errorf("%w: %w: need %d bytes, %d of %d reserved",
		ErrCapacityExceeded, resource.ErrOverCapacity, n*EntryBytes, c.rc.Reserved(), c.rc.Capacity())
}

func (c *Content) extend(n int) error {
	if err := c.rc.Reserve(int64(n)); err != nil {
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	c.buf = append(c.buf, make([]byte, n)...)
	return nil
}

func encodeEntry(dst []byte, e model.Entry) {
	var flags byte
	if e.HasNext {
		flags |= hasNextFlag
	}
	dst[flagsOff] = flags
	binary.BigEndian.PutUint32(dst[probabilityOff:], uint32(e.Probability))
	target := tombstoneTarget
	if e.Target.Valid() {
		target = uint32(e.Target)
	}
	binary.BigEndian.PutUint32(dst[targetOff:], target)
}

func decodeEntry(src []byte) model.Entry {
	e := model.Entry{
		Probability: model.Probability(int32(binary.BigEndian.Uint32(src[probabilityOff:]))),
		HasNext:     src[flagsOff]&hasNextFlag != 0,
		Target:      model.NotATerminal,
	}
	if raw := binary.BigEndian.Uint32(src[targetOff:]); raw != tombstoneTarget {
		if v, err := conv.Uint32ToInt32(raw); err == nil {
			e.Target = model.TerminalID(v)
		}
	}
	return e
}

// ListBytes returns the size in bytes of the chain starting at head.
func (c *Content) ListBytes(head model.Pos) int {
	if !head.Valid() {
		return 0
	}
	n := 0
	pos := head
	for int(pos)+EntryBytes <= len(c.buf) {
		n += EntryBytes
		if !c.ReadEntryAndAdvance(&pos).HasNext {
			break
		}
	}
	return n
}

// Terminals returns the terminals owning a list, in ascending order.
func (c *Content) Terminals() iter.Seq[model.TerminalID] {
	return func(yield func(model.TerminalID) bool) {
		it := c.lists.Iterator()
		for it.HasNext() {
			if !yield(model.TerminalID(it.Next())) {
				return
			}
		}
	}
}

// Heads returns (terminal, head) pairs in ascending terminal order.
func (c *Content) Heads() iter.Seq2[model.TerminalID, model.Pos] {
	return func(yield func(model.TerminalID, model.Pos) bool) {
		for id := range c.Terminals() {
			if !yield(id, c.heads[id]) {
				return
			}
		}
	}
}

// Bytes returns the raw region. The slice must be treated as read-only and is
// valid until the next write.
func (c *Content) Bytes() []byte {
	return c.buf
}

// Size returns the region size in bytes.
func (c *Content) Size() int {
	return len(c.buf)
}

// Head is a persisted head table row.
type Head struct {
	Terminal model.TerminalID
	Pos      model.Pos
}

// Restore replaces the region and head table. buf is copied.
func (c *Content) Restore(buf []byte, heads []Head) error {
	if len(buf)%EntryBytes != 0 {
		return fmt.Errorf("%w: region size %d is not a multiple of %d", ErrCorrupted, len(buf), EntryBytes)
	}
	for _, h := range heads {
		if !h.Terminal.Valid() {
			return fmt.Errorf("%w: head for %v", ErrCorrupted, h.Terminal)
		}
		if !h.Pos.Valid() || int(h.Pos)%EntryBytes != 0 || int(h.Pos)+EntryBytes > len(buf) {
			return fmt.Errorf("%w: head %d of %v outside region", ErrCorrupted, h.Pos, h.Terminal)
		}
	}

	if delta := int64(len(buf) - len(c.buf)); delta > 0 {
		if err := c.rc.Reserve(delta); err != nil {
			return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
		}
	} else {
		c.rc.Release(-delta)
	}

	c.buf = append(make([]byte, 0, len(buf)), buf...)
	clear(c.heads)
	c.lists.Clear()
	for _, h := range heads {
		c.setHead(h.Terminal, h.Pos)
	}
	return nil
}

// Stats describes the region.
type Stats struct {
	// Bytes is the region size.
	Bytes int
	// Lists is the number of terminals owning a list.
	Lists int
	// ReachableBytes is the size of all lists reachable from a head.
	ReachableBytes int
	// AbandonedBytes is the size of regions orphaned by list growth.
	AbandonedBytes int
}

// Stats computes region statistics. It walks every list.
func (c *Content) Stats() Stats {
	s := Stats{
		Bytes: len(c.buf),
		Lists: int(c.lists.GetCardinality()),
	}
	for _, head := range c.Heads() {
		s.ReachableBytes += c.ListBytes(head)
	}
	s.AbandonedBytes = s.Bytes - s.ReachableBytes
	return s
}

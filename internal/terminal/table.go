package terminal

import (
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bigramdict/model"
)

var (
	// ErrInvalidTerminal is returned for negative terminal ids.
	ErrInvalidTerminal = errors.New("terminal: invalid terminal id")
	// ErrInvalidPosition is returned for negative node positions.
	ErrInvalidPosition = errors.New("terminal: invalid node position")
)

// Table resolves terminal ids to node positions.
//
// Table is not safe for concurrent use.
type Table struct {
	pos  map[model.TerminalID]model.Pos
	live *roaring.Bitmap // ordered view of the keys of pos
}

// New creates an empty table.
func New() *Table {
	return &Table{
		pos:  make(map[model.TerminalID]model.Pos),
		live: roaring.New(),
	}
}

// Validate checks a binding without applying it.
func Validate(id model.TerminalID, nodePos model.Pos) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTerminal, id)
	}
	if !nodePos.Valid() {
		return fmt.Errorf("%w: %d for %v", ErrInvalidPosition, nodePos, id)
	}
	return nil
}

// Set binds id to nodePos, replacing any previous binding.
func (t *Table) Set(id model.TerminalID, nodePos model.Pos) error {
	if err := Validate(id, nodePos); err != nil {
		return err
	}
	t.pos[id] = nodePos
	t.live.Add(uint32(id))
	return nil
}

// Remove unbinds id. It reports whether id was bound.
func (t *Table) Remove(id model.TerminalID) bool {
	if !t.Contains(id) {
		return false
	}
	delete(t.pos, id)
	t.live.Remove(uint32(id))
	return true
}

// Contains reports whether id is bound.
func (t *Table) Contains(id model.TerminalID) bool {
	return id.Valid() && t.live.Contains(uint32(id))
}

// NodePos returns the node position of id, or model.NotAPos.
func (t *Table) NodePos(id model.TerminalID) model.Pos {
	if pos, ok := t.pos[id]; ok {
		return pos
	}
	return model.NotAPos
}

// Len returns the number of bound terminals.
func (t *Table) Len() int {
	return int(t.live.GetCardinality())
}

// Terminals returns bound terminals and their positions in ascending id order.
func (t *Table) Terminals() iter.Seq2[model.TerminalID, model.Pos] {
	return func(yield func(model.TerminalID, model.Pos) bool) {
		it := t.live.Iterator()
		for it.HasNext() {
			id := model.TerminalID(it.Next())
			if !yield(id, t.pos[id]) {
				return
			}
		}
	}
}

// Reset removes all bindings.
func (t *Table) Reset() {
	clear(t.pos)
	t.live.Clear()
}

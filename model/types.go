package model

import "fmt"

// TerminalID identifies a word endpoint (terminal) in the dictionary.
type TerminalID int32

// NotATerminal is the sentinel for "no terminal". As a bigram target it marks a tombstone.
const NotATerminal TerminalID = -1

// Valid reports whether id refers to a terminal (non-negative).
func (id TerminalID) Valid() bool { return id >= 0 }

func (id TerminalID) String() string {
	if id == NotATerminal {
		return "terminal(none)"
	}
	return fmt.Sprintf("terminal(%d)", int32(id))
}

// Pos is a byte offset into a region.
type Pos int

// NotAPos is the sentinel for "no position" (list absent, lookup failed).
const NotAPos Pos = -1

// Valid reports whether p is a real position.
func (p Pos) Valid() bool { return p >= 0 }

// Probability is a raw confidence value (static mode) or an encoded value whose
// bit layout is owned by the decay engine (decay mode).
type Probability int32

// NotAProbability is the sentinel for "no probability set".
const NotAProbability Probability = -1

// Entry is one bigram record.
type Entry struct {
	Probability Probability
	HasNext     bool
	Target      TerminalID
}

// IsTombstone reports whether the entry is logically empty and reusable.
func (e Entry) IsTombstone() bool {
	return e.Target == NotATerminal
}

// Tombstoned returns a copy of e with its target cleared. Probability and
// HasNext are kept.
func (e Entry) Tombstoned() Entry {
	e.Target = NotATerminal
	return e
}

// Bigram is a resolved bigram entry as seen by callers: the target is already
// translated into the following word's node position.
type Bigram struct {
	NodePos     Pos
	Probability Probability
	HasNext     bool
}

package bigram

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/bigramdict/model"
)

var (
	// ErrNotFound is returned when a terminal has no list or the list has no
	// live entry for a target.
	ErrNotFound = errors.New("bigram: entry not found")
	// ErrInvalidTerminal is returned for negative terminal or target ids.
	ErrInvalidTerminal = errors.New("bigram: invalid terminal id")
)

// Content is the record store backing all bigram lists.
type Content interface {
	HeadPos(id model.TerminalID) model.Pos
	CreateNewList(id model.TerminalID) error
	WriteEntry(e model.Entry, at model.Pos) error
	WriteEntryAndAdvance(e model.Entry, pos *model.Pos) error
	ReadEntry(at model.Pos) model.Entry
	ReadEntryAndAdvance(pos *model.Pos) model.Entry
	CopyList(src, dst model.Pos) error
}

// Resolver translates terminal ids into node positions.
type Resolver interface {
	// NodePos returns model.NotAPos when id no longer names a word.
	NodePos(id model.TerminalID) model.Pos
}

// Decayer owns the probability encoding of decaying dictionaries.
type Decayer interface {
	// Merge blends a stored value with a new observation. prior is
	// model.NotAProbability when there is no stored value.
	Merge(prior, observed model.Probability) model.Probability
	// Decay applies one maintenance step.
	Decay(p model.Probability) model.Probability
	// IsValid reports whether an entry with probability p is kept.
	IsValid(p model.Probability) bool
}

// Option configures a Policy.
type Option func(*Policy)

// WithDecay switches the policy to decay mode.
func WithDecay(d Decayer) Option {
	return func(p *Policy) {
		p.decayer = d
	}
}

// Policy implements insert, update, remove, lookup and sweep over bigram lists.
type Policy struct {
	content  Content
	resolver Resolver
	decayer  Decayer // nil in static mode
}

// NewPolicy creates a policy over content, resolving targets through resolver.
func NewPolicy(content Content, resolver Resolver, opts ...Option) *Policy {
	p := &Policy{
		content:  content,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decays reports whether the policy runs in decay mode.
func (p *Policy) Decays() bool {
	return p.decayer != nil
}

// Entries yields the records of the list starting at head together with their
// positions. It yields nothing for model.NotAPos.
func (p *Policy) Entries(head model.Pos) iter.Seq2[model.Pos, model.Entry] {
	return func(yield func(model.Pos, model.Entry) bool) {
		if !head.Valid() {
			return
		}
		pos := head
		for {
			at := pos
			e := p.content.ReadEntryAndAdvance(&pos)
			if !yield(at, e) || !e.HasNext {
				return
			}
		}
	}
}

// Next reads the record at cursor and returns it with its target resolved, plus
// the position of the following record. NodePos is model.NotAPos for tombstones
// and targets that no longer resolve.
func (p *Policy) Next(cursor model.Pos) (model.Bigram, model.Pos) {
	e := p.content.ReadEntryAndAdvance(&cursor)
	b := model.Bigram{
		NodePos:     model.NotAPos,
		Probability: e.Probability,
		HasNext:     e.HasNext,
	}
	if !e.IsTombstone() {
		b.NodePos = p.resolver.NodePos(e.Target)
	}
	return b, cursor
}

// Bigrams yields every record of the terminal's list as resolved bigrams,
// tombstones included.
func (p *Policy) Bigrams(id model.TerminalID) iter.Seq[model.Bigram] {
	return func(yield func(model.Bigram) bool) {
		cursor := p.content.HeadPos(id)
		if !cursor.Valid() {
			return
		}
		for {
			var b model.Bigram
			b, cursor = p.Next(cursor)
			if !yield(b) || !b.HasNext {
				return
			}
		}
	}
}

// AddEntry inserts a bigram from id to target or updates the existing one.
// It reports whether a new live entry was created.
//
// On error the list may be partially written; no rollback is attempted.
func (p *Policy) AddEntry(id, target model.TerminalID, prob model.Probability) (bool, error) {
	if !id.Valid() || !target.Valid() {
		return false, fmt.Errorf("%w: %v -> %v", ErrInvalidTerminal, id, target)
	}

	head := p.content.HeadPos(id)
	if !head.Valid() {
		if err := p.content.CreateNewList(id); err != nil {
			return false, fmt.Errorf("bigram: create list for %v: %w", id, err)
		}
		e := model.Entry{
			Probability: p.merge(model.NotAProbability, prob),
			HasNext:     false,
			Target:      target,
		}
		if err := p.content.WriteEntry(e, p.content.HeadPos(id)); err != nil {
			return false, fmt.Errorf("bigram: write entry %v -> %v: %w", id, target, err)
		}
		return true, nil
	}

	if at := p.entryPosToUpdate(head, target); at.Valid() {
		e := p.content.ReadEntry(at)
		added := e.IsTombstone()
		e.Probability = p.merge(e.Probability, prob)
		e.Target = target
		if err := p.content.WriteEntry(e, at); err != nil {
			return false, fmt.Errorf("bigram: update entry %v -> %v: %w", id, target, err)
		}
		return added, nil
	}

	// Full list: copy it forward behind a new head record.
	if err := p.content.CreateNewList(id); err != nil {
		return false, fmt.Errorf("bigram: grow list of %v: %w", id, err)
	}
	cursor := p.content.HeadPos(id)
	e := model.Entry{
		Probability: p.merge(model.NotAProbability, prob),
		HasNext:     true,
		Target:      target,
	}
	if err := p.content.WriteEntryAndAdvance(e, &cursor); err != nil {
		return false, fmt.Errorf("bigram: write entry %v -> %v: %w", id, target, err)
	}
	if err := p.content.CopyList(head, cursor); err != nil {
		return false, fmt.Errorf("bigram: copy list of %v: %w", id, err)
	}
	return true, nil
}

// RemoveEntry tombstones the live entry from id to target.
func (p *Policy) RemoveEntry(id, target model.TerminalID) error {
	at, err := p.Find(id, target)
	if err != nil {
		return err
	}
	e := p.content.ReadEntry(at)
	if err := p.content.WriteEntry(e.Tombstoned(), at); err != nil {
		return fmt.Errorf("bigram: remove entry %v -> %v: %w", id, target, err)
	}
	return nil
}

// Find returns the position of the live entry from id to target, or
// ErrNotFound.
func (p *Policy) Find(id, target model.TerminalID) (model.Pos, error) {
	if !target.Valid() {
		return model.NotAPos, fmt.Errorf("%w: %v -> %v", ErrNotFound, id, target)
	}
	head := p.content.HeadPos(id)
	if !head.Valid() {
		return model.NotAPos, fmt.Errorf("%w: %v has no bigram list", ErrNotFound, id)
	}
	at := p.entryPosToUpdate(head, target)
	if !at.Valid() || p.content.ReadEntry(at).Target != target {
		// At best a reusable tombstone.
		return model.NotAPos, fmt.Errorf("%w: %v -> %v", ErrNotFound, id, target)
	}
	return at, nil
}

// GrowthFor returns how many records AddEntry(id, target, ...) would append
// to the region: none for an update or a reused tombstone, one for a new
// list, and the whole list plus one when a full list is copied forward.
func (p *Policy) GrowthFor(id, target model.TerminalID) (int, error) {
	if !id.Valid() || !target.Valid() {
		return 0, fmt.Errorf("%w: %v -> %v", ErrInvalidTerminal, id, target)
	}
	head := p.content.HeadPos(id)
	if !head.Valid() {
		return 1, nil
	}
	if p.entryPosToUpdate(head, target).Valid() {
		return 0, nil
	}
	n := 1
	for range p.Entries(head) {
		n++
	}
	return n, nil
}

// Sweep reconciles the terminal's list with the resolver and, in decay mode,
// decays every entry. It returns the number of live entries left. On error,
// live counts the entries processed before the failure.
func (p *Policy) Sweep(id model.TerminalID) (int, error) {
	live := 0
	for at, e := range p.Entries(p.content.HeadPos(id)) {
		if e.IsTombstone() {
			continue
		}
		if !p.resolver.NodePos(e.Target).Valid() {
			if err := p.content.WriteEntry(e.Tombstoned(), at); err != nil {
				return live, fmt.Errorf("bigram: sweep %v: %w", id, err)
			}
			continue
		}
		if p.decayer == nil {
			live++
			continue
		}
		e.Probability = p.decayer.Decay(e.Probability)
		if !p.decayer.IsValid(e.Probability) {
			e = e.Tombstoned()
		}
		if err := p.content.WriteEntry(e, at); err != nil {
			return live, fmt.Errorf("bigram: sweep %v: %w", id, err)
		}
		if !e.IsTombstone() {
			live++
		}
	}
	return live, nil
}

// EntryCount returns the number of live entries in the terminal's list.
func (p *Policy) EntryCount(id model.TerminalID) int {
	n := 0
	for _, e := range p.Entries(p.content.HeadPos(id)) {
		if !e.IsTombstone() {
			n++
		}
	}
	return n
}

// entryPosToUpdate returns the position of the entry for target or, failing
// that, of the first tombstone in the list.
func (p *Policy) entryPosToUpdate(head model.Pos, target model.TerminalID) model.Pos {
	tombstone := model.NotAPos
	for at, e := range p.Entries(head) {
		if e.Target == target {
			return at
		}
		if e.IsTombstone() && !tombstone.Valid() {
			tombstone = at
		}
	}
	return tombstone
}

func (p *Policy) merge(prior, observed model.Probability) model.Probability {
	if p.decayer == nil {
		return observed
	}
	return p.decayer.Merge(prior, observed)
}

package bigramdict

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/bigramdict/blobstore"
	"github.com/hupe1980/bigramdict/internal/bigram"
	"github.com/hupe1980/bigramdict/internal/content"
	"github.com/hupe1980/bigramdict/internal/conv"
	"github.com/hupe1980/bigramdict/internal/forgetting"
	"github.com/hupe1980/bigramdict/internal/resource"
	"github.com/hupe1980/bigramdict/internal/terminal"
	"github.com/hupe1980/bigramdict/internal/wal"
	"github.com/hupe1980/bigramdict/model"
	"github.com/hupe1980/bigramdict/persistence"
)

type (
	// TerminalID identifies a word of the dictionary.
	TerminalID = model.TerminalID
	// Pos is a node position in the dictionary's trie.
	Pos = model.Pos
	// Probability is a raw (static mode) or encoded (decay mode) confidence.
	Probability = model.Probability
)

const (
	// NotATerminal is the sentinel for "no terminal".
	NotATerminal = model.NotATerminal
	// NotAPos is the sentinel for "no position".
	NotAPos = model.NotAPos
	// NotAProbability is the sentinel for "no probability".
	NotAProbability = model.NotAProbability
)

// Bigram is a live entry of a terminal's bigram list.
type Bigram struct {
	// Target is the following word.
	Target TerminalID
	// NodePos is the target's node position, or NotAPos if the target was
	// removed and the list has not been swept yet.
	NodePos Pos
	// Probability is the stored confidence of the word pair.
	Probability Probability
}

// SweepStats summarises a maintenance sweep.
type SweepStats struct {
	// Lists is the number of bigram lists visited.
	Lists int
	// Live is the number of live entries left across all lists.
	Live int
	// Removed is the number of entries tombstoned by the sweep.
	Removed int
	// Duration is the wall time of the sweep.
	Duration time.Duration
}

// Stats describes the state of a dictionary.
type Stats struct {
	Terminals      int
	Lists          int
	Bigrams        int
	ContentBytes   int
	ReachableBytes int
	// AbandonedBytes is the size of list regions orphaned by growth. They are
	// only reclaimed by rebuilding the dictionary.
	AbandonedBytes int
	CapacityBytes  int64
	Decay          bool
	LSN            uint64
	Version        uint64
	WALRecords     int
	WALBytes       int64
}

// Dictionary is an embeddable bigram store.
//
// All methods are safe for concurrent use. Mutations, reads and sweeps are
// serialised by a single mutex.
type Dictionary struct {
	mu sync.Mutex

	opts      options
	rc        *resource.Controller
	content   *content.Content
	terminals *terminal.Table
	policy    *bigram.Policy
	store     blobstore.BlobStore
	wal       *wal.WAL
	logger    *Logger
	metrics   MetricsCollector

	lsn     uint64 // last logged mutation
	version uint64 // last saved manifest version
	closed  bool
	failed  *StorageError // a logged mutation that could not be applied

	cancels []context.CancelFunc
	bg      sync.WaitGroup
}

// New creates an empty in-memory dictionary. With WithWAL, the records in the
// log are replayed on top of the empty state.
func New(optFns ...Option) (*Dictionary, error) {
	d, err := newDictionary(applyOptions(optFns), nil)
	if err != nil {
		return nil, err
	}
	if err := d.openWAL(context.Background()); err != nil {
		return nil, err
	}
	return d, nil
}

// Open loads the latest snapshot committed to store and replays the WAL on
// top of it. An empty store yields an empty dictionary. Save writes new
// snapshots back to store.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Dictionary, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	d, err := newDictionary(applyOptions(optFns), store)
	if err != nil {
		return nil, err
	}
	if err := d.load(ctx); err != nil {
		return nil, err
	}
	if err := d.openWAL(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func newDictionary(o options, store blobstore.BlobStore) (*Dictionary, error) {
	var popts []bigram.Option
	if o.decay != nil {
		curve := forgetting.New(*o.decay)
		if err := curve.Config().Validate(); err != nil {
			return nil, err
		}
		popts = append(popts, bigram.WithDecay(curve))
	}

	rc := resource.NewController(resource.Config{
		CapacityBytes:       o.capacity,
		SnapshotBytesPerSec: o.ioLimit,
	})
	c := content.New(content.WithController(rc))
	t := terminal.New()

	return &Dictionary{
		opts:      o,
		rc:        rc,
		content:   c,
		terminals: t,
		policy:    bigram.NewPolicy(c, t, popts...),
		store:     store,
		logger:    o.logger,
		metrics:   o.metricsCollector,
	}, nil
}

func (d *Dictionary) load(ctx context.Context) error {
	current, err := blobstore.ReadFile(ctx, d.store, currentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		d.logger.InfoContext(ctx, "no committed snapshot, starting empty")
		return nil
	}
	if err != nil {
		return &StorageError{Op: "read CURRENT", TerminalID: NotATerminal, Err: err}
	}

	name := strings.TrimSpace(string(current))
	data, err := blobstore.ReadFile(ctx, d.store, name)
	if err != nil {
		return &StorageError{Op: "read manifest " + name, TerminalID: NotATerminal, Err: err}
	}
	var m Manifest
	if err := d.opts.codec.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode manifest %s: %w", name, err)
	}

	raw, err := blobstore.ReadFile(ctx, d.store, m.Snapshot)
	if err != nil {
		return &StorageError{Op: "read snapshot " + m.Snapshot, TerminalID: NotATerminal, Err: err}
	}
	snap, err := persistence.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", m.Snapshot, err)
	}
	if err := d.restore(snap); err != nil {
		return err
	}
	d.version = m.Version

	d.logger.InfoContext(ctx, "snapshot loaded",
		"version", m.Version,
		"snapshot", m.Snapshot,
		"lsn", snap.LSN,
		"terminals", len(snap.Terminals),
		"lists", len(snap.Heads),
	)
	return nil
}

func (d *Dictionary) restore(snap *persistence.Snapshot) error {
	if snap.Decay != d.policy.Decays() {
		return fmt.Errorf("%w: snapshot decay=%t, dictionary decay=%t", ErrModeMismatch, snap.Decay, d.policy.Decays())
	}

	heads := make([]content.Head, len(snap.Heads))
	for i, h := range snap.Heads {
		heads[i] = content.Head{Terminal: h.Terminal, Pos: h.Head}
	}
	if err := d.content.Restore(snap.Content, heads); err != nil {
		return translateError("restore", NotATerminal, err)
	}

	d.terminals.Reset()
	for _, b := range snap.Terminals {
		if err := d.terminals.Set(b.Terminal, b.NodePos); err != nil {
			return fmt.Errorf("%w: %w", persistence.ErrCorrupted, err)
		}
	}
	d.lsn = snap.LSN
	return nil
}

func (d *Dictionary) openWAL(ctx context.Context) error {
	if d.opts.walPath == "" {
		return nil
	}
	wopts := wal.DefaultOptions()
	for _, fn := range d.opts.walOptions {
		fn(&wopts)
	}
	w, err := wal.Open(d.opts.fs, d.opts.walPath, wopts)
	if err != nil {
		return &StorageError{Op: "open wal", TerminalID: NotATerminal, Err: err}
	}
	w.AdvanceLSN(d.lsn)

	replayed := 0
	err = w.Replay(d.lsn, func(rec *wal.Record) error {
		if err := d.apply(rec); err != nil {
			return fmt.Errorf("replay %s at lsn %d: %w", rec.Type, rec.LSN, err)
		}
		d.lsn = rec.LSN
		replayed++
		return nil
	})
	d.logger.LogRecovery(ctx, replayed, err)
	if err != nil {
		return errors.Join(err, w.Close())
	}
	d.wal = w
	return nil
}

// apply redoes a logged mutation.
func (d *Dictionary) apply(rec *wal.Record) error {
	switch rec.Type {
	case wal.RecordTypeAddTerminal:
		pos, err := conv.Int64ToInt(rec.Value)
		if err != nil {
			return err
		}
		return d.terminals.Set(rec.Terminal, Pos(pos))
	case wal.RecordTypeRemoveTerminal:
		d.terminals.Remove(rec.Terminal)
		return nil
	case wal.RecordTypeAddBigram:
		prob, err := conv.Int64ToInt32(rec.Value)
		if err != nil {
			return err
		}
		_, err = d.policy.AddEntry(rec.Terminal, rec.Target, Probability(prob))
		return err
	case wal.RecordTypeRemoveBigram:
		return d.policy.RemoveEntry(rec.Terminal, rec.Target)
	case wal.RecordTypeSweep:
		_, err := d.sweepLocked()
		return err
	default:
		return fmt.Errorf("%w: %d", wal.ErrInvalidType, rec.Type)
	}
}

// logRecord appends a mutation to the WAL. Callers check every precondition
// first and apply the mutation only once it is logged.
func (d *Dictionary) logRecord(rec *wal.Record) error {
	if d.wal == nil {
		d.lsn++
		return nil
	}
	lsn, err := d.wal.Append(rec)
	if err != nil {
		return &StorageError{Op: "wal " + rec.Type.String(), TerminalID: rec.Terminal, Err: err}
	}
	d.lsn = lsn
	return nil
}

func (d *Dictionary) checkLocked(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	if d.failed != nil {
		return d.failed
	}
	return ctx.Err()
}

// failLocked handles a mutation that was logged but could not be applied.
// Memory and log disagree from here on, so further mutations and saves are
// refused.
func (d *Dictionary) failLocked(op string, id TerminalID, err error) error {
	var serr *StorageError
	if !errors.As(err, &serr) {
		serr = &StorageError{Op: op, TerminalID: id, Err: err}
	}
	d.failed = serr
	d.logger.Error("logged mutation not applied, dictionary is read-only",
		"op", op, "terminal", id, "lsn", d.lsn, "error", err)
	return serr
}

// AddTerminal binds id to the node position of its word, replacing any
// previous binding.
func (d *Dictionary) AddTerminal(ctx context.Context, id TerminalID, nodePos Pos) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return err
	}
	if err := terminal.Validate(id, nodePos); err != nil {
		return translateError("add terminal", id, err)
	}
	if err := d.logRecord(&wal.Record{
		Type:     wal.RecordTypeAddTerminal,
		Terminal: id,
		Target:   NotATerminal,
		Value:    int64(nodePos),
	}); err != nil {
		return err
	}
	if err := d.terminals.Set(id, nodePos); err != nil {
		return d.failLocked("add terminal", id, err)
	}
	return nil
}

// RemoveTerminal unbinds id. Bigrams pointing at id stop resolving and are
// tombstoned by the next sweep; id's own list is kept.
func (d *Dictionary) RemoveTerminal(ctx context.Context, id TerminalID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return err
	}
	if !id.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidTerminal, id)
	}
	if !d.terminals.Contains(id) {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if err := d.logRecord(&wal.Record{
		Type:     wal.RecordTypeRemoveTerminal,
		Terminal: id,
		Target:   NotATerminal,
	}); err != nil {
		return err
	}
	d.terminals.Remove(id)
	return nil
}

// AddBigram records the word pair id -> target with probability prob. It
// reports whether a new entry was created; an existing entry is updated.
//
// In decay mode prob is an observation merged into the stored level.
func (d *Dictionary) AddBigram(ctx context.Context, id, target TerminalID, prob Probability) (bool, error) {
	start := time.Now()
	added, err := d.addBigram(ctx, id, target, prob)
	d.metrics.RecordAdd(added, time.Since(start), err)
	d.logger.LogAdd(ctx, id, target, added, err)
	return added, err
}

func (d *Dictionary) addBigram(ctx context.Context, id, target TerminalID, prob Probability) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return false, err
	}
	records, err := d.policy.GrowthFor(id, target)
	if err != nil {
		return false, translateError("add bigram", id, err)
	}
	if err := d.content.CheckGrowth(records); err != nil {
		return false, translateError("add bigram", id, err)
	}
	if err := d.logRecord(&wal.Record{
		Type:     wal.RecordTypeAddBigram,
		Terminal: id,
		Target:   target,
		Value:    int64(prob),
	}); err != nil {
		return false, err
	}
	added, err := d.policy.AddEntry(id, target, prob)
	if err != nil {
		return false, d.failLocked("add bigram", id, translateError("add bigram", id, err))
	}
	return added, nil
}

// RemoveBigram removes the word pair id -> target. It returns ErrNotFound if
// the pair has no live entry.
func (d *Dictionary) RemoveBigram(ctx context.Context, id, target TerminalID) error {
	start := time.Now()
	err := d.removeBigram(ctx, id, target)
	d.metrics.RecordRemove(time.Since(start), err)
	d.logger.LogRemove(ctx, id, target, err)
	return err
}

func (d *Dictionary) removeBigram(ctx context.Context, id, target TerminalID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return err
	}
	if _, err := d.policy.Find(id, target); err != nil {
		return translateError("remove bigram", id, err)
	}
	if err := d.logRecord(&wal.Record{
		Type:     wal.RecordTypeRemoveBigram,
		Terminal: id,
		Target:   target,
	}); err != nil {
		return err
	}
	if err := d.policy.RemoveEntry(id, target); err != nil {
		return d.failLocked("remove bigram", id, translateError("remove bigram", id, err))
	}
	return nil
}

// Bigrams returns the live entries of id's list in list order.
func (d *Dictionary) Bigrams(id TerminalID) []Bigram {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	var out []Bigram
	for _, e := range d.policy.Entries(d.content.HeadPos(id)) {
		if e.IsTombstone() {
			continue
		}
		out = append(out, Bigram{
			Target:      e.Target,
			NodePos:     d.terminals.NodePos(e.Target),
			Probability: e.Probability,
		})
	}
	return out
}

// BigramCount returns the number of live entries in id's list.
func (d *Dictionary) BigramCount(id TerminalID) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0
	}
	return d.policy.EntryCount(id)
}

// NodePos returns the node position bound to id, or NotAPos.
func (d *Dictionary) NodePos(id TerminalID) Pos {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.terminals.NodePos(id)
}

// Binding is a terminal bound to a node position.
type Binding struct {
	ID      TerminalID
	NodePos Pos
}

// Terminals returns the bound terminals in ascending id order.
func (d *Dictionary) Terminals() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	out := make([]Binding, 0, d.terminals.Len())
	for id, pos := range d.terminals.Terminals() {
		out = append(out, Binding{ID: id, NodePos: pos})
	}
	return out
}

// Lists returns the terminals owning a bigram list in ascending id order. A
// removed terminal keeps its list.
func (d *Dictionary) Lists() []TerminalID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	return slices.Collect(d.content.Terminals())
}

// Sweep visits every bigram list, tombstones entries whose target no longer
// resolves and, in decay mode, decays every entry and forgets the ones that
// fall below the validity threshold.
func (d *Dictionary) Sweep(ctx context.Context) (SweepStats, error) {
	start := time.Now()
	stats, err := d.sweep(ctx)
	stats.Duration = time.Since(start)
	d.metrics.RecordSweep(stats.Lists, stats.Removed, stats.Duration, err)
	d.logger.LogSweep(ctx, stats, err)
	return stats, err
}

func (d *Dictionary) sweep(ctx context.Context) (SweepStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return SweepStats{}, err
	}
	if err := d.logRecord(&wal.Record{
		Type:     wal.RecordTypeSweep,
		Terminal: NotATerminal,
		Target:   NotATerminal,
	}); err != nil {
		return SweepStats{}, err
	}
	stats, err := d.sweepLocked()
	if err != nil {
		return stats, d.failLocked("sweep", NotATerminal, err)
	}
	return stats, nil
}

// sweepLocked runs to completion once started, so that a replayed sweep
// record reproduces it exactly.
func (d *Dictionary) sweepLocked() (SweepStats, error) {
	var stats SweepStats
	for id := range d.content.Terminals() {
		before := d.policy.EntryCount(id)
		live, err := d.policy.Sweep(id)
		stats.Lists++
		stats.Live += live
		if err != nil {
			return stats, translateError("sweep", id, err)
		}
		stats.Removed += before - live
	}
	return stats, nil
}

// Stats returns a snapshot of the dictionary's counters. It walks every list.
func (d *Dictionary) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	cs := d.content.Stats()
	s := Stats{
		Terminals:      d.terminals.Len(),
		Lists:          cs.Lists,
		ContentBytes:   cs.Bytes,
		ReachableBytes: cs.ReachableBytes,
		AbandonedBytes: cs.AbandonedBytes,
		CapacityBytes:  d.rc.Capacity(),
		Decay:          d.policy.Decays(),
		LSN:            d.lsn,
		Version:        d.version,
	}
	for id := range d.content.Terminals() {
		s.Bigrams += d.policy.EntryCount(id)
	}
	if d.wal != nil && !d.closed {
		s.WALRecords = d.wal.Len()
		s.WALBytes = d.wal.Size()
	}
	return s
}
